package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/example/driver-rides/internal/models"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleGeocoder performs reverse lookups against the Google Geocoding API.
type GoogleGeocoder struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{APIKey: apiKey, Endpoint: googleGeocodeURL, Client: &http.Client{Timeout: 5 * time.Second}}
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// ReverseGeocode returns one Address per result. ZERO_RESULTS is an empty
// slice, not an error.
func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, c models.Coord) ([]models.Address, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", c.Lat, c.Lon))
	params.Set("key", g.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create geocode request: %w", err)
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode http status %d", resp.StatusCode)
	}

	var out googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	switch out.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []models.Address{}, nil
	default:
		return nil, fmt.Errorf("geocode status %s: %s", out.Status, out.ErrorMessage)
	}

	addrs := make([]models.Address, 0, len(out.Results))
	for _, r := range out.Results {
		var a models.Address
		for _, comp := range r.AddressComponents {
			name := comp.LongName
			for _, t := range comp.Types {
				switch t {
				case "route":
					a.Street = setOnce(a.Street, name)
				case "sublocality", "sublocality_level_1", "neighborhood":
					a.District = setOnce(a.District, name)
				case "locality", "postal_town":
					a.City = setOnce(a.City, name)
				case "administrative_area_level_1":
					a.Region = setOnce(a.Region, comp.ShortName)
				}
			}
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}

func setOnce(cur *string, v string) *string {
	if cur != nil || v == "" {
		return cur
	}
	return &v
}
