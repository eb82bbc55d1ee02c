package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout-ai/homescout/pkg/models"
)

// fakePOIProvider serves POIs keyed by latitude and can fail selectively.
type fakePOIProvider struct {
	mu      sync.Mutex
	byLat   map[float64][]models.POI
	failLat map[float64]bool
	calls   int
}

func (f *fakePOIProvider) POIsNear(ctx context.Context, lat, lon float64, radiusM int, categories []models.POICategory) ([]models.POI, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failLat[lat] {
		return nil, fmt.Errorf("category search failed")
	}
	return f.byLat[lat], nil
}

func geoCandidate(url string, lat float64) models.GeoCandidate {
	return models.GeoCandidate{
		Candidate: models.Candidate{Title: "Apartamento", URL: url},
		Lat:       lat,
		Lon:       -7.9,
	}
}

func TestLocalEnrich(t *testing.T) {
	t.Run("only top candidates get lookups", func(t *testing.T) {
		var candidates []models.GeoCandidate
		byLat := map[float64][]models.POI{}
		for i := 0; i < 7; i++ {
			lat := 37.0 + float64(i)*0.001
			candidates = append(candidates, geoCandidate(fmt.Sprintf("https://idealista.pt/%d", i), lat))
			byLat[lat] = []models.POI{{Name: fmt.Sprintf("poi-%d", i), Category: models.POISchool, DistanceMeters: 120}}
		}
		provider := &fakePOIProvider{byLat: byLat}
		a := NewLocalDiscoveryAgent(provider)

		out := a.Enrich(context.Background(), candidates)

		require.Len(t, out, 7)
		assert.Equal(t, 5, provider.calls)
		for i := 0; i < 5; i++ {
			require.Len(t, out[i].POIs, 1, "candidate %d", i)
			assert.Equal(t, fmt.Sprintf("poi-%d", i), out[i].POIs[0].Name)
		}
		for i := 5; i < 7; i++ {
			assert.NotNil(t, out[i].POIs)
			assert.Empty(t, out[i].POIs, "candidate %d", i)
		}
	})

	t.Run("provider failure degrades to empty list", func(t *testing.T) {
		good := geoCandidate("https://idealista.pt/1", 37.0)
		bad := geoCandidate("https://idealista.pt/2", 38.0)
		provider := &fakePOIProvider{
			byLat:   map[float64][]models.POI{37.0: {{Name: "Escola EB1", Category: models.POISchool}}},
			failLat: map[float64]bool{38.0: true},
		}
		a := NewLocalDiscoveryAgent(provider)

		out := a.Enrich(context.Background(), []models.GeoCandidate{good, bad})

		require.Len(t, out, 2)
		assert.Len(t, out[0].POIs, 1)
		assert.NotNil(t, out[1].POIs)
		assert.Empty(t, out[1].POIs)
	})

	t.Run("empty batch", func(t *testing.T) {
		a := NewLocalDiscoveryAgent(&fakePOIProvider{})
		assert.Empty(t, a.Enrich(context.Background(), nil))
	})
}
