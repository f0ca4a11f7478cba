package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Coordinates carry the 6-decimal lat/lng pair derived from a location string.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Client resolves free-text locations to coordinates and back. Both lookups
// are tri-state: (value, true, nil) on a match, (zero, false, nil) when the
// provider has no result, and (zero, false, err) on provider failure. Callers
// treat the error case as a soft failure.
type Client interface {
	Forward(ctx context.Context, location string) (Coordinates, bool, error)
	Reverse(ctx context.Context, lat, lng float64) (string, bool, error)
}

// Nominatim talks to a Nominatim-compatible geocoding endpoint.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	return &Nominatim{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type forwardResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type reverseResult struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (n *Nominatim) Forward(ctx context.Context, location string) (Coordinates, bool, error) {
	if location == "" {
		return Coordinates{}, false, nil
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("format", "json")
	q.Set("limit", "1")

	var results []forwardResult
	if err := n.get(ctx, "/search", q, &results); err != nil {
		return Coordinates{}, false, err
	}
	if len(results) == 0 {
		return Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, false, fmt.Errorf("parse lat: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, false, fmt.Errorf("parse lon: %w", err)
	}
	return Coordinates{Lat: round6(lat), Lng: round6(lng)}, true, nil
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lng float64) (string, bool, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))
	q.Set("format", "json")

	var result reverseResult
	if err := n.get(ctx, "/reverse", q, &result); err != nil {
		return "", false, err
	}
	// Nominatim reports "no result" inside a 200 body.
	if result.Error != "" || result.DisplayName == "" {
		return "", false, nil
	}
	return result.DisplayName, true, nil
}

func (n *Nominatim) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("geocoding provider returned " + resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
