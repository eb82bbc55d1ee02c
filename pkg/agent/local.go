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

// Local discovery bounds.
const (
	poiTopCandidates  = 5
	poiConcurrency    = 4
	poiPerEntryBudget = 8 * time.Second
)

// LocalDiscoveryAgent attaches nearby points of interest to the top
// candidates. The batch always succeeds: a provider failure for one entry
// degrades that entry to an empty POI list.
type LocalDiscoveryAgent struct {
	provider geo.POIProvider
	logger   *slog.Logger
}

// NewLocalDiscoveryAgent wires the local discovery agent.
func NewLocalDiscoveryAgent(provider geo.POIProvider) *LocalDiscoveryAgent {
	return &LocalDiscoveryAgent{
		provider: provider,
		logger:   slog.Default().With("agent", "local"),
	}
}

// Enrich fetches POIs for the top candidates and attaches empty lists to the
// rest, preserving order.
func (a *LocalDiscoveryAgent) Enrich(ctx context.Context, candidates []models.GeoCandidate) []models.EnrichedCandidate {
	out := make([]models.EnrichedCandidate, len(candidates))
	for i, gc := range candidates {
		out[i] = models.EnrichedCandidate{GeoCandidate: gc, POIs: []models.POI{}}
	}

	limit := poiTopCandidates
	if limit > len(candidates) {
		limit = len(candidates)
	}

	sem := semaphore.NewWeighted(poiConcurrency)
	var wg sync.WaitGroup
	for i := 0; i < limit; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer sem.Release(1)

			entryCtx, cancel := context.WithTimeout(ctx, poiPerEntryBudget)
			defer cancel()

			gc := candidates[idx]
			pois, err := a.provider.POIsNear(entryCtx, gc.Lat, gc.Lon, geo.DefaultRadiusMeters, nil)
			if err != nil {
				a.logger.Debug("poi lookup failed, attaching empty list",
					"url", gc.URL, "error", err)
				return
			}
			out[idx].POIs = pois
		}(i)
	}
	wg.Wait()
	return out
}
