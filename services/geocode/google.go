package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"venuedir/models"

	"golang.org/x/time/rate"
)

// DefaultGoogleBaseURL is the Google Geocoding API endpoint.
const DefaultGoogleBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// GoogleProvider resolves addresses with the Google Geocoding API. Outgoing
// requests are throttled to the configured rate.
type GoogleProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewGoogleProvider builds a provider. A non-positive requestsPerSec disables throttling.
func NewGoogleProvider(apiKey string, requestsPerSec float64, timeout time.Duration) *GoogleProvider {
	limit := rate.Inf
	burst := 1
	if requestsPerSec > 0 {
		limit = rate.Limit(requestsPerSec)
		burst = int(requestsPerSec)
		if burst < 1 {
			burst = 1
		}
	}
	return &GoogleProvider{
		apiKey:  apiKey,
		baseURL: DefaultGoogleBaseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// WithBaseURL points the provider at a different endpoint.
func (p *GoogleProvider) WithBaseURL(base string) *GoogleProvider {
	p.baseURL = base
	return p
}

func (p *GoogleProvider) Resolve(ctx context.Context, address string) (models.Coordinate, error) {
	if p.apiKey == "" {
		return models.Coordinate{}, fmt.Errorf("geocoding: API key not configured")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return models.Coordinate{}, err
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return models.Coordinate{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinate{}, fmt.Errorf("geocoding request failed: status %d", resp.StatusCode)
	}

	var data googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return models.Coordinate{}, fmt.Errorf("failed to decode geocoding response: %w", err)
	}

	switch data.Status {
	case "OK":
	case "ZERO_RESULTS":
		return models.Coordinate{}, ErrNotFound
	default:
		return models.Coordinate{}, fmt.Errorf("geocoding status %s: %s", data.Status, data.ErrorMessage)
	}
	if len(data.Results) == 0 {
		return models.Coordinate{}, ErrNotFound
	}
	loc := data.Results[0].Geometry.Location
	return models.Coordinate{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
