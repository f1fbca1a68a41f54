package geofence

import "math"

// LocationOther is the sentinel location assigned when a coordinate falls
// outside every configured region.
const LocationOther = "Other"

// Region is a named circular geofence loaded from configuration.
type Region struct {
	Location     string  `json:"location"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"geofenceRadiusMeters"`
}

// Contains reports whether the point lies strictly inside the region.
func (r Region) Contains(latitude, longitude float64) bool {
	return haversineMeters(latitude, longitude, r.Latitude, r.Longitude) < r.RadiusMeters
}

// Match returns the first region containing the point. Order matters: with
// overlapping regions the first listed one wins, which keeps the result a
// pure function of the point and the configured list.
func Match(latitude, longitude float64, regions []Region) (Region, bool) {
	for _, r := range regions {
		if r.Contains(latitude, longitude) {
			return r, true
		}
	}
	return Region{}, false
}

// MatchLocation is like Match but collapses a miss to LocationOther.
func MatchLocation(latitude, longitude float64, regions []Region) string {
	if r, ok := Match(latitude, longitude, regions); ok {
		return r.Location
	}
	return LocationOther
}

// haversineMeters returns great-circle distance in metres between two lat/lon points.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371000.0 // Earth radius in metres
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	lat1Rad := toRad(lat1)
	lat2Rad := toRad(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return r * c
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
