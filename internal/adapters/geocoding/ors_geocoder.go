package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/platform/obs"
	"parcel-dispatch-service/internal/ports"
	"strings"
)

const DefaultORSURL = "https://api.openrouteservice.org"

type orsGeocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ORSGeocoder resolves addresses using OpenRouteService (/geocode/search).
// Country, when set, restricts results with boundary.country (ISO 3166-1 alpha-2).
type ORSGeocoder struct {
	session *http.Client
	apiKey  string
	baseURL string
	country string
}

func NewORSGeocoder(apiKey, baseURL, country string) (*ORSGeocoder, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultORSURL
	}

	return &ORSGeocoder{
		session: newSession(),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		country: country,
	}, nil
}

func (o *ORSGeocoder) Resolve(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Resolve")(&err)

	address = strings.Join(strings.Fields(address), " ")
	if address == "" {
		return domain.Coordinates{}, fmt.Errorf("ors resolve: empty address: %w", ports.ErrAddressNotFound)
	}

	q := url.Values{}
	q.Set("text", address)
	q.Set("size", "1")
	if o.country != "" {
		q.Set("boundary.country", o.country)
	}

	req, err := newGetRequest(ctx, o.baseURL+"/geocode/search?"+q.Encode(), map[string]string{"Authorization": o.apiKey})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("ors resolve: %w", err)
	}

	resp, err := do(o.session, req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("ors resolve %q: %w", address, classify(ctx, err))
	}
	defer resp.Body.Close()

	var decoded orsGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("ors resolve: decode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, fmt.Errorf("ors resolve %q: %w", address, ports.ErrAddressNotFound)
	}

	// GeoJSON order is [lon, lat].
	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, fmt.Errorf("ors resolve %q: invalid coordinate format", address)
	}

	return domain.Coordinates{Lon: coords[0], Lat: coords[1]}, nil
}
