package geofence

import (
	"math"
	"testing"
)

const (
	homeLat = 52.377956
	homeLon = 4.897070
)

// latitudeOffset shifts a latitude by roughly the given number of metres.
func latitudeOffset(meters float64) float64 {
	return meters / 111320.0
}

func TestHaversineMeters(t *testing.T) {
	// Amsterdam Centraal to Dam Square is roughly 1.1 km.
	d := haversineMeters(52.379189, 4.899431, 52.373058, 4.892557)
	if d < 800 || d > 1400 {
		t.Fatalf("implausible distance: %f m", d)
	}

	if d := haversineMeters(homeLat, homeLon, homeLat, homeLon); d != 0 {
		t.Fatalf("distance to self should be 0, got %f", d)
	}
}

func TestMatchInsideSingleRegion(t *testing.T) {
	regions := []Region{
		{Location: "Home", Latitude: homeLat, Longitude: homeLon, RadiusMeters: 100},
	}

	// ~50 m north of center.
	r, ok := Match(homeLat+latitudeOffset(50), homeLon, regions)
	if !ok {
		t.Fatal("expected a match 50 m from center")
	}
	if r.Location != "Home" {
		t.Fatalf("expected Home, got %s", r.Location)
	}
}

func TestMatchOutsideAllRegions(t *testing.T) {
	regions := []Region{
		{Location: "Home", Latitude: homeLat, Longitude: homeLon, RadiusMeters: 100},
	}

	// ~500 m north of center.
	if _, ok := Match(homeLat+latitudeOffset(500), homeLon, regions); ok {
		t.Fatal("expected no match 500 m from center")
	}
	if loc := MatchLocation(homeLat+latitudeOffset(500), homeLon, regions); loc != LocationOther {
		t.Fatalf("expected %s, got %s", LocationOther, loc)
	}
}

func TestMatchFirstWinsOnOverlap(t *testing.T) {
	// Two concentric regions; the first listed one must win regardless of
	// which is closer or smaller.
	regions := []Region{
		{Location: "Work", Latitude: homeLat, Longitude: homeLon, RadiusMeters: 1000},
		{Location: "Home", Latitude: homeLat, Longitude: homeLon, RadiusMeters: 100},
	}

	r, ok := Match(homeLat, homeLon, regions)
	if !ok {
		t.Fatal("expected a match")
	}
	if r.Location != "Work" {
		t.Fatalf("first listed region should win, got %s", r.Location)
	}
}

func TestMatchBoundaryIsExclusive(t *testing.T) {
	radius := 100.0
	regions := []Region{
		{Location: "Home", Latitude: homeLat, Longitude: homeLon, RadiusMeters: radius},
	}

	// A point (numerically) just outside the radius must not match.
	lat := homeLat + latitudeOffset(radius*1.01)
	if _, ok := Match(lat, homeLon, regions); ok {
		d := haversineMeters(lat, homeLon, homeLat, homeLon)
		if d >= radius {
			t.Fatalf("point at %f m matched a %f m region", d, radius)
		}
	}
}

func TestMatchEmptyRegionList(t *testing.T) {
	if _, ok := Match(homeLat, homeLon, nil); ok {
		t.Fatal("empty region list should never match")
	}
	if loc := MatchLocation(homeLat, homeLon, nil); loc != LocationOther {
		t.Fatalf("expected %s, got %s", LocationOther, loc)
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	regions := []Region{
		{Location: "A", Latitude: homeLat, Longitude: homeLon, RadiusMeters: 200},
		{Location: "B", Latitude: homeLat, Longitude: homeLon, RadiusMeters: 200},
	}

	first, _ := Match(homeLat, homeLon, regions)
	for i := 0; i < 10; i++ {
		r, _ := Match(homeLat, homeLon, regions)
		if r.Location != first.Location {
			t.Fatalf("match result changed between calls: %s vs %s", first.Location, r.Location)
		}
	}
}

func TestContainsUsesStrictInequality(t *testing.T) {
	r := Region{Location: "Zero", Latitude: homeLat, Longitude: homeLon, RadiusMeters: 0}
	if r.Contains(homeLat, homeLon) {
		t.Fatal("zero-radius region should contain nothing, distance 0 is not < 0")
	}

	if math.Signbit(haversineMeters(homeLat, homeLon, homeLat, homeLon)) {
		t.Fatal("distance should never be negative")
	}
}
