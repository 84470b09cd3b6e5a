// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// HTTPSearcher queries a JSON search endpoint. The provider contract is
// GET <base>?q=<query> returning {"items": [RawItem...]}.
type HTTPSearcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSearcher creates a searcher against the given base URL. A zero
// timeout defaults to 5s; discovery sits on the recommendation path, so
// a slow provider must fail fast and trip the breaker instead.
// Outbound queries are paced at 5 per second so a burst of cold-pool
// recommendations cannot hammer the provider.
func NewHTTPSearcher(baseURL string, timeout time.Duration) *HTTPSearcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSearcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// Search runs one query against the provider.
func (s *HTTPSearcher) Search(ctx context.Context, query string) ([]RawItem, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate wait: %w", err)
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search provider returned %s", resp.Status)
	}

	var body struct {
		Items []RawItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return body.Items, nil
}
