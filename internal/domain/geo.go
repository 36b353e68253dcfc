package domain

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Facility is a health facility returned by a geo lookup.
type Facility struct {
	Name         string     `json:"name"`
	Address      string     `json:"address"`
	Rating       *float64   `json:"rating,omitempty"`
	RatingsTotal int        `json:"user_ratings_total"`
	Phone        string     `json:"phone,omitempty"`
	Location     Coordinate `json:"location"`
	DistanceKm   float64    `json:"distance_km"`
}
