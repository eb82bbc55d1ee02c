package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/homescout-ai/homescout/pkg/config"
	"github.com/homescout-ai/homescout/pkg/models"
)

// DefaultRadiusMeters is the POI search radius when the caller passes 0.
const DefaultRadiusMeters = 1500

// poiLimitPerCategory caps results per category query.
const poiLimitPerCategory = 2

// POIProvider is the nearby-search surface the local discovery agent consumes.
type POIProvider interface {
	POIsNear(ctx context.Context, lat, lon float64, radiusM int, categories []models.POICategory) ([]models.POI, error)
}

// MapboxPOIProvider calls the Search Box category endpoints, one request per
// category, and merges the results sorted by distance.
type MapboxPOIProvider struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewMapboxPOIProvider builds a POI provider from configuration.
func NewMapboxPOIProvider(cfg *config.Config) *MapboxPOIProvider {
	return &MapboxPOIProvider{
		baseURL: cfg.GeocoderBaseURL,
		token:   cfg.POIProviderAPIKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default().With("component", "poi"),
	}
}

type categoryResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Name           string   `json:"name"`
			FullAddress    string   `json:"full_address"`
			PlaceFormatted string   `json:"place_formatted"`
			Distance       *float64 `json:"distance"`
		} `json:"properties"`
	} `json:"features"`
}

// POIsNear queries each requested category around the point. Per-category
// failures are skipped; the merged list is sorted by ascending distance and
// trimmed to the radius.
func (p *MapboxPOIProvider) POIsNear(ctx context.Context, lat, lon float64, radiusM int, categories []models.POICategory) ([]models.POI, error) {
	if radiusM <= 0 {
		radiusM = DefaultRadiusMeters
	}
	if len(categories) == 0 {
		categories = models.AllPOICategories
	}

	var all []models.POI
	for _, category := range categories {
		pois, err := p.searchCategory(ctx, lat, lon, category)
		if err != nil {
			p.logger.Debug("category search failed, skipping",
				"category", category, "error", err)
			continue
		}
		all = append(all, pois...)
	}

	filtered := all[:0]
	for _, poi := range all {
		if poi.DistanceMeters <= float64(radiusM) {
			filtered = append(filtered, poi)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].DistanceMeters < filtered[j].DistanceMeters
	})
	return filtered, nil
}

func (p *MapboxPOIProvider) searchCategory(ctx context.Context, lat, lon float64, category models.POICategory) ([]models.POI, error) {
	params := url.Values{}
	params.Set("access_token", p.token)
	// Search Box expects lon,lat order.
	params.Set("proximity", fmt.Sprintf("%f,%f", lon, lat))
	params.Set("limit", strconv.Itoa(poiLimitPerCategory))
	params.Set("language", "en")
	endpoint := p.baseURL + "/search/searchbox/v1/category/" + string(category) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("category %s returned %d", category, resp.StatusCode)
	}

	var decoded categoryResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode category response: %w", err)
	}

	pois := make([]models.POI, 0, len(decoded.Features))
	for _, f := range decoded.Features {
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		poi := models.POI{
			Name:      f.Properties.Name,
			Category:  category,
			Longitude: f.Geometry.Coordinates[0],
			Latitude:  f.Geometry.Coordinates[1],
			Address:   f.Properties.FullAddress,
		}
		if poi.Address == "" {
			poi.Address = f.Properties.PlaceFormatted
		}
		if f.Properties.Distance != nil {
			poi.DistanceMeters = *f.Properties.Distance
		} else {
			poi.DistanceMeters = DistanceMeters(lat, lon, poi.Latitude, poi.Longitude)
		}
		pois = append(pois, poi)
	}
	return pois, nil
}
