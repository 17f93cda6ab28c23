// Package geocode resolves coordinates to human-readable addresses.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Resolver reverse-geocodes coordinates. Failure is degraded locally to a
// formatted coordinate string, so ReverseGeocode never blocks a submission.
type Resolver struct {
	baseURL string
	client  *http.Client
}

// Config configures the resolver.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the default client, used by tests.
	HTTPClient *http.Client
}

// NewResolver creates a reverse geocoder from cfg.
func NewResolver(cfg Config) *Resolver {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Resolver{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
	}
}

// CoordinateFallback is the address substituted when reverse geocoding fails.
func CoordinateFallback(latitude, longitude float64) string {
	return fmt.Sprintf("Location: %.6f, %.6f", latitude, longitude)
}

// ReverseGeocode resolves (latitude, longitude) to a display address. Any
// failure falls back to the formatted coordinate string; the result is never
// empty.
func (r *Resolver) ReverseGeocode(ctx context.Context, latitude, longitude float64) string {
	endpoint := fmt.Sprintf("%s/reverse?format=json&lat=%s&lon=%s",
		r.baseURL,
		url.QueryEscape(fmt.Sprintf("%v", latitude)),
		url.QueryEscape(fmt.Sprintf("%v", longitude)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CoordinateFallback(latitude, longitude)
	}
	req.Header.Set("User-Agent", "civiclens-api")

	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("⚠️  Reverse geocoding failed: %v", err)
		return CoordinateFallback(latitude, longitude)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️  Reverse geocoding returned status %d", resp.StatusCode)
		return CoordinateFallback(latitude, longitude)
	}

	var payload struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.DisplayName == "" {
		return CoordinateFallback(latitude, longitude)
	}

	return payload.DisplayName
}
