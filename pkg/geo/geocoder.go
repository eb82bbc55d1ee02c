// Package geo resolves free-text addresses to coordinates and finds nearby
// points of interest, both via the Mapbox search APIs.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/homescout-ai/homescout/pkg/config"
)

// ErrNotFound indicates the query resolved to nothing usable.
var ErrNotFound = errors.New("location not found")

// minConfidence is the floor below which a geocode hit is treated as a miss.
const minConfidence = 0.3

// Result is a successful forward geocode.
type Result struct {
	Lat               float64
	Lon               float64
	Confidence        float64
	NormalizedAddress string
}

// Geocoder is the forward-geocoding surface the mapping agent consumes.
type Geocoder interface {
	Geocode(ctx context.Context, query, countryHint string) (Result, error)
}

// MapboxGeocoder calls the v6 forward geocoding endpoint.
type MapboxGeocoder struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewMapboxGeocoder builds a geocoder from configuration.
func NewMapboxGeocoder(cfg *config.Config) *MapboxGeocoder {
	return &MapboxGeocoder{
		baseURL: cfg.GeocoderBaseURL,
		token:   cfg.GeocoderAPIKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default().With("component", "geocoder"),
	}
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			FullAddress string `json:"full_address"`
			Name        string `json:"name"`
			MatchCode   struct {
				Confidence string `json:"confidence"`
			} `json:"match_code"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode resolves a free-text query. Low-confidence hits are reported as
// ErrNotFound. One transient retry on 5xx or network failure.
func (g *MapboxGeocoder) Geocode(ctx context.Context, query, countryHint string) (Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("access_token", g.token)
	params.Set("limit", "1")
	if countryHint != "" {
		params.Set("country", countryHint)
	}
	endpoint := g.baseURL + "/search/geocode/v6/forward?" + params.Encode()

	body, err := g.getWithRetry(ctx, endpoint)
	if err != nil {
		return Result{}, err
	}

	var resp geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(resp.Features) == 0 {
		return Result{}, ErrNotFound
	}

	feature := resp.Features[0]
	if len(feature.Geometry.Coordinates) < 2 {
		return Result{}, ErrNotFound
	}

	result := Result{
		// GeoJSON order is [lon, lat].
		Lon:               feature.Geometry.Coordinates[0],
		Lat:               feature.Geometry.Coordinates[1],
		Confidence:        confidenceScore(feature.Properties.MatchCode.Confidence),
		NormalizedAddress: feature.Properties.FullAddress,
	}
	if result.NormalizedAddress == "" {
		result.NormalizedAddress = feature.Properties.Name
	}
	if result.Confidence < minConfidence {
		g.logger.Debug("geocode confidence below threshold",
			"query", query, "confidence", result.Confidence)
		return Result{}, ErrNotFound
	}
	return result, nil
}

// confidenceScore maps the v6 match_code label onto [0,1]. An absent label
// means the endpoint did not score the match; trust the top hit.
func confidenceScore(label string) float64 {
	switch label {
	case "exact":
		return 1.0
	case "high":
		return 0.8
	case "medium":
		return 0.5
	case "low":
		return 0.2
	case "":
		return 0.7
	default:
		return 0.5
	}
}

// getWithRetry performs a GET with one retry on transient failure.
func (g *MapboxGeocoder) getWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	body, err := g.getOnce(ctx, endpoint)
	if err == nil || !isTransient(err) {
		return body, err
	}
	g.logger.Debug("geocode attempt failed, retrying once", "error", err)
	return g.getOnce(ctx, endpoint)
}

func (g *MapboxGeocoder) getOnce(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: err}
	}
	if resp.StatusCode >= 500 {
		return nil, &transientError{err: fmt.Errorf("geocoder returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var terr *transientError
	return errors.As(err, &terr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
