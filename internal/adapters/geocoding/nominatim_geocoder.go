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
	"strconv"
	"strings"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	defaultUserAgent    = "parcel-dispatch-service/1.0"
)

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// NominatimGeocoder resolves addresses with the OpenStreetMap Nominatim search API.
//
// RegionSuffix (for example ", Tamil Nadu, India") is appended to every query to keep
// free-text addresses inside the service area. Nominatim requires an identifying User-Agent.
type NominatimGeocoder struct {
	session      *http.Client
	baseURL      string
	userAgent    string
	regionSuffix string
}

func NewNominatimGeocoder(baseURL, userAgent, regionSuffix string) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &NominatimGeocoder{
		session:      newSession(),
		baseURL:      strings.TrimRight(baseURL, "/"),
		userAgent:    userAgent,
		regionSuffix: regionSuffix,
	}
}

func (n *NominatimGeocoder) Resolve(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "nominatim.Resolve")(&err)

	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Coordinates{}, fmt.Errorf("nominatim resolve: empty address: %w", ports.ErrAddressNotFound)
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", address+n.regionSuffix)
	q.Set("limit", "1")

	req, err := newGetRequest(ctx, n.baseURL+"/search?"+q.Encode(), map[string]string{"User-Agent": n.userAgent})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("nominatim resolve: %w", err)
	}

	resp, err := do(n.session, req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("nominatim resolve %q: %w", address, classify(ctx, err))
	}
	defer resp.Body.Close()

	var decoded []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("nominatim resolve: decode response: %w", err)
	}

	if len(decoded) == 0 {
		return domain.Coordinates{}, fmt.Errorf("nominatim resolve %q: %w", address, ports.ErrAddressNotFound)
	}

	lat, latErr := strconv.ParseFloat(decoded[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(decoded[0].Lon, 64)
	if err := errors.Join(latErr, lonErr); err != nil {
		return domain.Coordinates{}, fmt.Errorf("nominatim resolve %q: invalid coordinate format: %w", address, err)
	}

	return domain.Coordinates{Lat: lat, Lon: lon}, nil
}
