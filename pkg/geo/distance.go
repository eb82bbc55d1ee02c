package geo

import "math"

const earthRadiusMeters = 6371000

// DistanceMeters computes the great-circle distance between two points using
// the spherical law of cosines. Accurate to well under a meter at city scale.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180

	cosine := math.Sin(p1)*math.Sin(p2) + math.Cos(p1)*math.Cos(p2)*math.Cos(dl)
	// Clamp rounding drift before Acos.
	cosine = math.Min(1, math.Max(-1, cosine))
	return math.Acos(cosine) * earthRadiusMeters
}
