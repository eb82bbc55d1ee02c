package config

import "strings"

// Location is one entry in the known-locations table: a canonical label,
// accepted aliases (diacritic-free spellings included), and a center point
// for bounding-box matching.
type Location struct {
	Canonical string
	Aliases   []string
	Lat       float64
	Lon       float64
}

// KnownLocations covers the 16 Algarve municipalities plus the major
// localities users actually name. The research agent's location filter and
// the geocoding fallback both consume this table.
var KnownLocations = []Location{
	// Municipalities
	{Canonical: "Albufeira", Lat: 37.0891, Lon: -8.2479},
	{Canonical: "Alcoutim", Lat: 37.4702, Lon: -7.4721},
	{Canonical: "Aljezur", Lat: 37.3177, Lon: -8.8031},
	{Canonical: "Castro Marim", Lat: 37.2201, Lon: -7.4434},
	{Canonical: "Faro", Lat: 37.0194, Lon: -7.9304},
	{Canonical: "Lagoa", Lat: 37.1350, Lon: -8.4534},
	{Canonical: "Lagos", Lat: 37.1028, Lon: -8.6742},
	{Canonical: "Loulé", Aliases: []string{"Loule"}, Lat: 37.1440, Lon: -8.0230},
	{Canonical: "Monchique", Lat: 37.3177, Lon: -8.5554},
	{Canonical: "Olhão", Aliases: []string{"Olhao"}, Lat: 37.0262, Lon: -7.8411},
	{Canonical: "Portimão", Aliases: []string{"Portimao"}, Lat: 37.1366, Lon: -8.5377},
	{Canonical: "São Brás de Alportel", Aliases: []string{"Sao Bras de Alportel", "Sao Bras"}, Lat: 37.1525, Lon: -7.8887},
	{Canonical: "Silves", Lat: 37.1869, Lon: -8.4389},
	{Canonical: "Tavira", Lat: 37.1264, Lon: -7.6486},
	{Canonical: "Vila do Bispo", Lat: 37.0829, Lon: -8.9124},
	{Canonical: "Vila Real de Santo António", Aliases: []string{"Vila Real de Santo Antonio", "VRSA"}, Lat: 37.1935, Lon: -7.4175},

	// Major localities
	{Canonical: "Quarteira", Lat: 37.0695, Lon: -8.1006},
	{Canonical: "Vilamoura", Lat: 37.0777, Lon: -8.1163},
	{Canonical: "Almancil", Lat: 37.0870, Lon: -8.0318},
	{Canonical: "Armação de Pêra", Aliases: []string{"Armacao de Pera"}, Lat: 37.1022, Lon: -8.3575},
	{Canonical: "Carvoeiro", Lat: 37.0970, Lon: -8.4713},
	{Canonical: "Alvor", Lat: 37.1296, Lon: -8.5929},
	{Canonical: "Sagres", Lat: 37.0081, Lon: -8.9399},
	{Canonical: "Monte Gordo", Lat: 37.1814, Lon: -7.4517},
	{Canonical: "Ferragudo", Lat: 37.1235, Lon: -8.5191},
	{Canonical: "Quinta do Lago", Lat: 37.0486, Lon: -8.0163},
}

// LookupLocation resolves a user-supplied name against the table, matching
// canonical labels and aliases case-insensitively.
func LookupLocation(name string) (Location, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Location{}, false
	}
	for _, loc := range KnownLocations {
		if strings.ToLower(loc.Canonical) == needle {
			return loc, true
		}
		for _, alias := range loc.Aliases {
			if strings.ToLower(alias) == needle {
				return loc, true
			}
		}
	}
	return Location{}, false
}
