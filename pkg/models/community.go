package models

// Story is a single news item referenced by a community report.
type Story struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url,omitempty"`
}

// CommunityReport scores a neighborhood on a 0-10 scale per axis.
// One report is produced per completed search, for the top-ranked
// candidate's locality.
type CommunityReport struct {
	Location           string  `json:"location"`
	OverallScore       float64 `json:"overall_score"`
	OverallExplanation string  `json:"overall_explanation"`
	SafetyScore        float64 `json:"safety_score"`
	SchoolRating       float64 `json:"school_rating"`
	SchoolExplanation  string  `json:"school_explanation"`
	PositiveStories    []Story `json:"positive_stories"`
	NegativeStories    []Story `json:"negative_stories"`

	// Housing stats extracted from the same analysis pass; zero when the
	// sources did not mention them.
	HousingPricePerSqm  int `json:"housing_price_per_sqm"`
	AverageHouseSizeSqm int `json:"average_house_size_sqm"`
}

// ClampScores forces every score into [0,10] and reports whether any value
// had to be adjusted.
func (r *CommunityReport) ClampScores() bool {
	clamped := false
	for _, s := range []*float64{&r.OverallScore, &r.SafetyScore, &r.SchoolRating} {
		if *s < 0 {
			*s = 0
			clamped = true
		}
		if *s > 10 {
			*s = 10
			clamped = true
		}
	}
	return clamped
}
