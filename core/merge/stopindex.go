package merge

import (
	"math"

	"feed-merger/core/graph"
	"feed-merger/core/identity"
)

const (
	earthRadiusMeters = 6371008.8
	metersPerDegree   = 111320.0
)

// distanceMeters is the haversine distance between two coordinates.
func distanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	dφ := (lat2 - lat1) * math.Pi / 180
	dλ := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dφ/2)*math.Sin(dφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

type cell struct {
	lat, lon int
}

type indexedStop struct {
	id     identity.ID
	origin graph.Handle
	name   string
	lat  float64
	lon  float64
}

// stopIndex is a uniform grid over target stops. Cells are one tolerance
// wide in latitude, so a match lies in the neighbouring cells.
type stopIndex struct {
	tolerance float64
	degrees   float64
	cells     map[cell][]indexedStop
}

func newStopIndex(toleranceMeters float64) *stopIndex {
	return &stopIndex{
		tolerance: toleranceMeters,
		degrees:   toleranceMeters / metersPerDegree,
		cells:     make(map[cell][]indexedStop),
	}
}

func (x *stopIndex) cellOf(lat, lon float64) cell {
	return cell{lat: int(math.Floor(lat / x.degrees)), lon: int(math.Floor(lon / x.degrees))}
}

func (x *stopIndex) add(id identity.ID, origin graph.Handle, name string, lat, lon float64) {
	c := x.cellOf(lat, lon)
	x.cells[c] = append(x.cells[c], indexedStop{id: id, origin: origin, name: name, lat: lat, lon: lon})
}

// nearest returns the closest indexed stop with the given name within the
// tolerance, ignoring stops that came from origin. Ties resolve to the
// smaller id.
func (x *stopIndex) nearest(origin graph.Handle, name string, lat, lon float64) (identity.ID, bool) {
	center := x.cellOf(lat, lon)
	// A degree of longitude shrinks with latitude; widen the search to compensate.
	spread := 100
	if cos := math.Cos(lat * math.Pi / 180); cos > 0.01 {
		spread = int(math.Ceil(1 / cos))
	}

	var (
		best     identity.ID
		bestDist = math.Inf(1)
		found    bool
	)
	for dLat := -1; dLat <= 1; dLat++ {
		for dLon := -spread; dLon <= spread; dLon++ {
			for _, s := range x.cells[cell{lat: center.lat + dLat, lon: center.lon + dLon}] {
				if s.name != name || s.origin == origin {
					continue
				}
				d := distanceMeters(lat, lon, s.lat, s.lon)
				if d > x.tolerance {
					continue
				}
				if !found || d < bestDist || (d == bestDist && identity.Compare(s.id, best) < 0) {
					best, bestDist, found = s.id, d, true
				}
			}
		}
	}
	return best, found
}

func (x *stopIndex) size() int {
	n := 0
	for _, stops := range x.cells {
		n += len(stops)
	}
	return n
}
