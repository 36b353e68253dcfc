// Package places finds health facilities near a coordinate.
package places

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"googlemaps.github.io/maps"

	"maternal-care-agent/internal/domain"
	"maternal-care-agent/internal/usecase/escalation"
)

var ErrAddressNotFound = errors.New("address not found")

// Places searches Google Places for hospitals and degrades to fallback when
// the upstream call fails.
type Places struct {
	client   *maps.Client
	fallback escalation.FacilityFinder
	log      logrus.FieldLogger
}

// NewPlaces builds the finder. opts are appended after the API key, so tests
// can point the client at a fake server with maps.WithBaseURL.
func NewPlaces(apiKey string, fallback escalation.FacilityFinder, log logrus.FieldLogger, opts ...maps.ClientOption) (*Places, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &Places{client: client, fallback: fallback, log: log}, nil
}

var _ escalation.FacilityFinder = (*Places)(nil)

func (p *Places) FindNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]domain.Facility, error) {
	found, err := p.search(ctx, lat, lng, radiusMeters)
	if err == nil {
		return found, nil
	}
	if p.fallback == nil {
		return nil, fmt.Errorf("%w: places: %v", domain.ErrUpstreamUnavailable, err)
	}
	p.log.WithError(err).Warn("places search failed, using facility directory")
	return p.fallback.FindNearby(ctx, lat, lng, radiusMeters)
}

func (p *Places) search(ctx context.Context, lat, lng float64, radiusMeters int) ([]domain.Facility, error) {
	origin := domain.Coordinate{Lat: lat, Lng: lng}
	resp, err := p.client.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: lat, Lng: lng},
		Radius:   uint(radiusMeters),
		Type:     maps.PlaceTypeHospital,
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Facility, 0, len(resp.Results))
	for _, r := range resp.Results {
		loc := domain.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng}
		f := domain.Facility{
			Name:         r.Name,
			Address:      r.Vicinity,
			RatingsTotal: r.UserRatingsTotal,
			Location:     loc,
			DistanceKm:   DistanceKm(origin, loc),
		}
		if r.Rating > 0 {
			f.Rating = rating(float64(r.Rating))
		}
		out = append(out, f)
	}
	sortNearest(out)
	return out, nil
}

// GeocodeResult is the first match for an address.
type GeocodeResult struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
}

func (p *Places) Geocode(ctx context.Context, address string) (GeocodeResult, error) {
	results, err := p.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return GeocodeResult{}, fmt.Errorf("%w: geocode: %v", domain.ErrUpstreamUnavailable, err)
	}
	if len(results) == 0 {
		return GeocodeResult{}, ErrAddressNotFound
	}
	return GeocodeResult{
		Latitude:         results[0].Geometry.Location.Lat,
		Longitude:        results[0].Geometry.Location.Lng,
		FormattedAddress: results[0].FormattedAddress,
	}, nil
}
