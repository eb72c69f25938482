package feature

import (
	"github.com/umahmood/haversine"

	"github.com/storelens/storelens/internal/dataset"
)

// GeoIndex resolves a zip-code prefix to a representative coordinate. The
// geolocation file carries many points per prefix; we average them.
type GeoIndex struct {
	byZip map[string]haversine.Coord
}

func NewGeoIndex(rows []dataset.Geolocation) *GeoIndex {
	type acc struct {
		lat, lng float64
		n        int
	}
	sums := make(map[string]*acc)
	for _, g := range rows {
		a := sums[g.ZipPrefix]
		if a == nil {
			a = &acc{}
			sums[g.ZipPrefix] = a
		}
		a.lat += g.Lat
		a.lng += g.Lng
		a.n++
	}

	byZip := make(map[string]haversine.Coord, len(sums))
	for zip, a := range sums {
		byZip[zip] = haversine.Coord{Lat: a.lat / float64(a.n), Lon: a.lng / float64(a.n)}
	}
	return &GeoIndex{byZip: byZip}
}

func (g *GeoIndex) Coord(zip string) (haversine.Coord, bool) {
	c, ok := g.byZip[zip]
	return c, ok
}

// DistanceKM returns the great-circle distance between two zip prefixes,
// or nil when either side has no known coordinate.
func (g *GeoIndex) DistanceKM(zipA, zipB string) *float64 {
	a, okA := g.byZip[zipA]
	b, okB := g.byZip[zipB]
	if !okA || !okB {
		return nil
	}
	_, km := haversine.Distance(a, b)
	return &km
}

// DistanceKM is the great-circle distance between two raw coordinates.
func DistanceKM(latA, lngA, latB, lngB float64) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: latA, Lon: lngA},
		haversine.Coord{Lat: latB, Lon: lngB},
	)
	return km
}
