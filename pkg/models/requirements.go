// Package models contains the business domain types shared across agents,
// the coordinator, and the HTTP layer.
package models

import "fmt"

// Requirements is the validated housing criteria produced by the scoping
// agent and consumed read-only by the rest of the pipeline.
type Requirements struct {
	Location       string   `json:"location"`
	Bedrooms       *int     `json:"bedrooms,omitempty"`
	Bathrooms      *float64 `json:"bathrooms,omitempty"`
	BudgetMin      *int     `json:"budget_min,omitempty"`
	BudgetMax      *int     `json:"budget_max,omitempty"`
	IsRent         bool     `json:"is_rent"`
	AdditionalInfo string   `json:"additional_info,omitempty"`
}

// Validate checks the invariants that must hold on a completed record.
func (r *Requirements) Validate() error {
	if r.Location == "" {
		return &ValidationError{Field: "location", Reason: "location is required"}
	}
	if r.Bedrooms != nil && *r.Bedrooms < 0 {
		return &ValidationError{Field: "bedrooms", Reason: "bedrooms must not be negative"}
	}
	if r.Bathrooms != nil && *r.Bathrooms < 0 {
		return &ValidationError{Field: "bathrooms", Reason: "bathrooms must not be negative"}
	}
	if r.BudgetMin != nil && r.BudgetMax != nil && *r.BudgetMin > *r.BudgetMax {
		return &ValidationError{
			Field:  "budget_min",
			Reason: fmt.Sprintf("budget_min (%d) exceeds budget_max (%d)", *r.BudgetMin, *r.BudgetMax),
		}
	}
	return nil
}

// Merge overlays non-nil fields from next onto r, returning the merged copy.
// Later non-empty values win; fields absent from next keep their prior value.
// IsRent is not merged here: false is a meaningful answer, so the scoping
// agent overlays it from its tri-state reply.
func (r Requirements) Merge(next Requirements) Requirements {
	merged := r
	if next.Location != "" {
		merged.Location = next.Location
	}
	if next.Bedrooms != nil {
		merged.Bedrooms = next.Bedrooms
	}
	if next.Bathrooms != nil {
		merged.Bathrooms = next.Bathrooms
	}
	if next.BudgetMin != nil {
		merged.BudgetMin = next.BudgetMin
	}
	if next.BudgetMax != nil {
		merged.BudgetMax = next.BudgetMax
	}
	if next.AdditionalInfo != "" {
		merged.AdditionalInfo = next.AdditionalInfo
	}
	return merged
}

// ValidationError reports an invariant violation on user-supplied data.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}
