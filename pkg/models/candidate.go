package models

// Price is a listing price with currency and rent/buy intent.
type Price struct {
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	IsRent   bool   `json:"is_rent"`
}

// Candidate is a scraped property listing before geocoding and enrichment.
// URL is unique within a result set; ordering is the agents' ranking and is
// preserved end-to-end.
type Candidate struct {
	Title        string   `json:"title"`
	Address      string   `json:"address"`
	City         string   `json:"city,omitempty"`
	Description  string   `json:"description,omitempty"`
	URL          string   `json:"url"`
	ImageURL     string   `json:"image_url,omitempty"`
	Price        *Price   `json:"price,omitempty"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *float64 `json:"bathrooms,omitempty"`
	AreaM2       *float64 `json:"area_m2,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	RawSnippet   string   `json:"-"`
}

// HasCoordinates reports whether the listing itself carried a usable
// coordinate pair.
func (c *Candidate) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// GeoCandidate is a Candidate that has been resolved to a coordinate.
// Confidence is the geocoder's score in [0,1].
type GeoCandidate struct {
	Candidate
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Confidence float64 `json:"geocode_confidence"`
}

// EnrichedCandidate is a GeoCandidate with nearby points of interest
// attached, ordered by ascending distance.
type EnrichedCandidate struct {
	GeoCandidate
	POIs []POI `json:"pois"`
}

// POICategory is the closed set of point-of-interest categories.
type POICategory string

const (
	POISchool         POICategory = "school"
	POIHospital       POICategory = "hospital"
	POIGrocery        POICategory = "grocery"
	POIRestaurant     POICategory = "restaurant"
	POIPark           POICategory = "park"
	POITransitStation POICategory = "transit_station"
	POICafe           POICategory = "cafe"
	POIGym            POICategory = "gym"
	POIOther          POICategory = "other"
)

// AllPOICategories lists the categories queried for each listing.
var AllPOICategories = []POICategory{
	POISchool, POIHospital, POIGrocery, POIRestaurant,
	POIPark, POITransitStation, POICafe, POIGym,
}

// POI is a point of interest near a listing.
type POI struct {
	Name           string      `json:"name"`
	Category       POICategory `json:"category"`
	Latitude       float64     `json:"latitude"`
	Longitude      float64     `json:"longitude"`
	Address        string      `json:"address,omitempty"`
	DistanceMeters float64     `json:"distance_meters"`
}
