// Package geofence tests whether a vehicle position lies within a station's
// tolerance zone.
//
// Distances are great-circle distances computed with the haversine formula on
// a spherical Earth. The zone radius is inflated by the horizontal accuracy of
// the GPS fix, so a noisy fix near the edge is not counted as outside.
//
// Example usage:
//
//	res := geofence.Check(stationPoint, vehiclePoint, 500, sample.Accuracy)
//	if res.InRadius {
//		// vehicle was at the station
//	}
package geofence

import "math"

// EarthRadiusMeters is the mean Earth radius.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Result holds the outcome of a geofence check.
type Result struct {
	Distance float64 // meters
	InRadius bool
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h marginally above 1 for antipodal points
	h = math.Min(1, h)

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Check computes the distance from station to vehicle and whether it falls
// within radius plus the fix accuracy. A nil or negative accuracy adds nothing.
func Check(station, vehicle Point, radius float64, accuracy *float64) Result {
	distance := Distance(station, vehicle)

	effective := radius
	if accuracy != nil && *accuracy > 0 {
		effective += *accuracy
	}

	return Result{
		Distance: distance,
		InRadius: distance <= effective,
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
