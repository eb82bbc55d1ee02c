package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/homescout-ai/homescout/pkg/geo"
	"github.com/homescout-ai/homescout/pkg/models"
)

// Mapping bounds.
const (
	geocodeConcurrency  = 8
	geocodeBatchTimeout = 20 * time.Second
)

// MappingAgent resolves a coordinate for each candidate: listing coordinates
// first, then a full-address geocode, then city plus country. Input order is
// preserved; candidates with no resolvable coordinate are dropped.
type MappingAgent struct {
	geocoder geo.Geocoder
	logger   *slog.Logger
}

// NewMappingAgent wires the mapping agent.
func NewMappingAgent(geocoder geo.Geocoder) *MappingAgent {
	return &MappingAgent{
		geocoder: geocoder,
		logger:   slog.Default().With("agent", "mapping"),
	}
}

// Resolve geocodes a batch. All geocodes share one deadline; entries that
// time out are treated as failed and dropped.
func (a *MappingAgent) Resolve(ctx context.Context, candidates []models.Candidate) []models.GeoCandidate {
	batchCtx, cancel := context.WithTimeout(ctx, geocodeBatchTimeout)
	defer cancel()

	sem := semaphore.NewWeighted(geocodeConcurrency)
	results := make([]*models.GeoCandidate, len(candidates))

	var wg sync.WaitGroup
	for i, candidate := range candidates {
		if err := sem.Acquire(batchCtx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(idx int, c models.Candidate) {
			defer wg.Done()
			defer sem.Release(1)
			if gc, ok := a.resolveOne(batchCtx, c); ok {
				results[idx] = &gc
			}
		}(i, candidate)
	}
	wg.Wait()

	out := make([]models.GeoCandidate, 0, len(candidates))
	for _, gc := range results {
		if gc != nil {
			out = append(out, *gc)
		}
	}
	a.logger.Info("geocoding batch resolved",
		"in", len(candidates), "out", len(out))
	return out
}

func (a *MappingAgent) resolveOne(ctx context.Context, c models.Candidate) (models.GeoCandidate, bool) {
	// 1. Coordinates already on the listing.
	if c.HasCoordinates() {
		return models.GeoCandidate{Candidate: c, Lat: *c.Latitude, Lon: *c.Longitude, Confidence: 1.0}, true
	}

	// 2. Full address.
	if c.Address != "" {
		if result, err := a.geocoder.Geocode(ctx, c.Address, "PT"); err == nil {
			return models.GeoCandidate{Candidate: c, Lat: result.Lat, Lon: result.Lon, Confidence: result.Confidence}, true
		}
	}

	// 3. City plus country.
	if c.City != "" {
		if result, err := a.geocoder.Geocode(ctx, c.City+", Portugal", "PT"); err == nil {
			return models.GeoCandidate{Candidate: c, Lat: result.Lat, Lon: result.Lon, Confidence: result.Confidence}, true
		}
	}

	a.logger.Debug("no geocoding strategy succeeded", "url", c.URL)
	return models.GeoCandidate{}, false
}
