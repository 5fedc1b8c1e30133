// Package geo provides the cost model used by the route planner: great-circle
// distances between detection coordinates and their conversion to travel time
// over rubble terrain.
package geo

import (
	"math"

	"github.com/opensar/rescue/core/model"
)

// earthRadiusM is the spherical-Earth approximation radius.
const earthRadiusM = 6371000.0

// DefaultSpeedMS is the average traversal speed for rescue teams moving
// through rubble, 5 km/h expressed in m/s.
const DefaultSpeedMS = 5000.0 / 3600.0

// Cost converts coordinates into distances and travel times at a fixed
// average speed. The zero value is unusable; use NewCost.
type Cost struct {
	speedMS float64
}

// NewCost returns a Cost using the given average speed in m/s. Non-positive
// speeds fall back to DefaultSpeedMS.
func NewCost(speedMS float64) Cost {
	if speedMS <= 0 {
		speedMS = DefaultSpeedMS
	}
	return Cost{speedMS: speedMS}
}

// Distance returns the haversine great-circle distance between a and b in
// meters. It is symmetric and zero for identical points.
func Distance(a, b model.Position) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusM * 2 * math.Asin(math.Sqrt(h))
}

// Distance returns the distance between a and b in meters.
func (c Cost) Distance(a, b model.Position) float64 {
	return Distance(a, b)
}

// TravelTime converts a distance in meters to seconds at the configured speed.
func (c Cost) TravelTime(meters float64) float64 {
	return meters / c.speedMS
}
