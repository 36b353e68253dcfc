package places

import (
	"context"

	"maternal-care-agent/internal/domain"
)

func rating(v float64) *float64 { return &v }

// NairobiFacilities is the built-in list used without a Maps key.
var NairobiFacilities = []domain.Facility{
	{
		Name:     "Nairobi Women's Hospital",
		Address:  "Argwings Kodhek Rd, Nairobi",
		Phone:    "+254 703 082 000",
		Rating:   rating(4.5),
		Location: domain.Coordinate{Lat: -1.2921, Lng: 36.8219},
	},
	{
		Name:     "Aga Khan University Hospital",
		Address:  "3rd Parklands Avenue, Nairobi",
		Phone:    "+254 711 011 888",
		Rating:   rating(4.7),
		Location: domain.Coordinate{Lat: -1.2684, Lng: 36.8065},
	},
	{
		Name:     "Kenyatta National Hospital",
		Address:  "Hospital Rd, Upper Hill, Nairobi",
		Phone:    "+254 20 2726300",
		Location: domain.Coordinate{Lat: -1.3007, Lng: 36.8068},
	},
	{
		Name:     "Pumwani Maternity Hospital",
		Address:  "Pumwani Rd, Nairobi",
		Location: domain.Coordinate{Lat: -1.2833, Lng: 36.8433},
	},
}

// Directory ranks a fixed facility list by distance from the query point.
type Directory struct {
	facilities []domain.Facility
}

func NewDirectory(facilities []domain.Facility) *Directory {
	return &Directory{facilities: append([]domain.Facility(nil), facilities...)}
}

// FindNearby returns the facilities within radiusMeters, nearest first.
func (d *Directory) FindNearby(_ context.Context, lat, lng float64, radiusMeters int) ([]domain.Facility, error) {
	origin := domain.Coordinate{Lat: lat, Lng: lng}
	out := []domain.Facility{}
	for _, f := range d.facilities {
		f.DistanceKm = DistanceKm(origin, f.Location)
		if radiusMeters > 0 && f.DistanceKm*1000 > float64(radiusMeters) {
			continue
		}
		out = append(out, f)
	}
	sortNearest(out)
	return out, nil
}
