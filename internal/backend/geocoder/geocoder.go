package geocoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jo-hoe/gophotos/internal/backend/metrics"
)

// Keys under which raw coordinates are kept in the EXIF map when no geocoding key is configured.
const (
	SyntheticLatitudeKey  = "GPSLatitudeDecimal"
	SyntheticLongitudeKey = "GPSLongitudeDecimal"
)

const (
	DefaultBaseURL = "https://restapi.amap.com/v3/geocode/regeo"
	DefaultTimeout = 5 * time.Second
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client resolves coordinates to a city (or province) name.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      Cache
}

// NewClient builds a client; cache may be nil.
func NewClient(config Config, cache Cache) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		apiKey:     config.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type regeoResponse struct {
	Status    string `json:"status"`
	Info      string `json:"info"`
	Regeocode struct {
		AddressComponent struct {
			Province json.RawMessage `json:"province"`
			City     json.RawMessage `json:"city"`
		} `json:"addressComponent"`
	} `json:"regeocode"`
}

// ReverseGeocode returns the place name for the coordinates. Every failure is
// logged and reported as absent; nothing is retried.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (string, bool) {
	if !c.Enabled() {
		return "", false
	}

	if c.cache != nil {
		place, ok, err := c.cache.Get(ctx, lat, lon)
		if err != nil {
			slog.Warn("Geocoder: cache lookup failed", "error", err)
		} else if ok {
			metrics.GeocodeRequests.WithLabelValues("cache_hit").Inc()
			return place, true
		}
	}

	place, err := c.lookup(ctx, lat, lon)
	if err != nil {
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		slog.Warn("Geocoder: reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return "", false
	}
	if place == "" {
		metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		slog.Debug("Geocoder: no place for coordinates", "lat", lat, "lon", lon)
		return "", false
	}
	metrics.GeocodeRequests.WithLabelValues("success").Inc()

	if c.cache != nil {
		if err := c.cache.Set(ctx, lat, lon, place); err != nil {
			slog.Warn("Geocoder: cache store failed", "error", err)
		}
	}
	return place, true
}

func (c *Client) lookup(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("location", fmt.Sprintf("%f,%f", lon, lat))
	params.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var body regeoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Status != "1" {
		return "", fmt.Errorf("service rejected request: %s", body.Info)
	}

	components := body.Regeocode.AddressComponent
	if city := rawString(components.City); city != "" {
		return city, nil
	}
	return rawString(components.Province), nil
}

// rawString reads a field that is a string when set and an empty array or object otherwise.
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
