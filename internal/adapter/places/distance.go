package places

import (
	"math"
	"sort"

	"maternal-care-agent/internal/domain"
)

const earthRadiusKm = 6371

// DistanceKm is the great-circle distance between a and b, rounded to 2 dp.
func DistanceKm(a, b domain.Coordinate) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Pow(math.Sin(dLng/2), 2)
	d := 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
	return math.Round(d*100) / 100
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func sortNearest(facilities []domain.Facility) {
	sort.SliceStable(facilities, func(i, j int) bool {
		return facilities[i].DistanceKm < facilities[j].DistanceKm
	})
}
