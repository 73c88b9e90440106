package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"github.com/example/driver-rides/internal/models"
)

// CellPrecision is the geohash length used to bucket nearby coordinates,
// roughly a 38m x 19m cell.
const CellPrecision = 8

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// Distance is Haversine for two coordinates.
func Distance(a, b models.Coord) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// PathLength sums the segment distances of a path in meters.
func PathLength(path []models.Coord) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1], path[i])
	}
	return total
}

// Cell buckets a coordinate into a geohash cell so lookups for points a few
// meters apart share a key.
func Cell(c models.Coord) string {
	return geohash.EncodeWithPrecision(c.Lat, c.Lon, CellPrecision)
}
