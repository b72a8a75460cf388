// Package httpadapter provides the generic REST fetch/parse skeleton
// shared by the concrete equity, macro/commodity, and news adapters —
// each supplies its own validate/normalize mapping over the same HTTP
// plumbing, following the one-fetch-path-many-providers shape the
// teacher's exchange adapters used for REST venues.
package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marketcore/ingestcore/internal/errs"
)

// NewClient builds an *http.Client whose pool keeps at most 50 idle
// connections overall, allows at most 10 connections per host, and closes
// idle connections after 30s. net/http has no cap on the total number of
// active connections across hosts.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxConnsPerHost:     10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Base implements Fetch and Parse generically; embedders supply
// Validate/Normalize and Name/DataTypes/HealthCheck.
type Base struct {
	Source    string
	BaseURL   string
	APIKey    string
	UserAgent string
	Client    *http.Client
}

// Fetch issues a GET to BaseURL with params as the query string.
func (b *Base) Fetch(ctx context.Context, params map[string]any) ([]byte, error) {
	url := b.BaseURL
	if len(params) > 0 {
		url += "?" + encodeQuery(params)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(b.Source, errs.StageFetch, errs.KindBadResponse, err.Error(), err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	if b.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.APIKey)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, errs.New(b.Source, errs.StageFetch, errs.KindTimeout, err.Error(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(b.Source, errs.StageFetch, errs.KindBadResponse, err.Error(), err)
	}

	if resp.StatusCode >= 300 {
		kind := errs.FromHTTPStatus(resp.StatusCode)
		env := errs.New(b.Source, errs.StageFetch, kind, fmt.Sprintf("http %d", resp.StatusCode), nil)
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs := parseRetryAfter(ra); secs > 0 {
				env = env.WithRetryAfter(secs)
			}
		}
		return nil, env
	}
	return body, nil
}

// Parse decodes raw as generic JSON; validate/normalize stages do the
// provider-specific shape checking.
func (b *Base) Parse(ctx context.Context, raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errs.New(b.Source, errs.StageParse, errs.KindBadResponse, err.Error(), err)
	}
	return v, nil
}

func (b *Base) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := b.Fetch(ctx, nil)
	return err
}

func encodeQuery(params map[string]any) string {
	out := ""
	first := true
	for k, v := range params {
		if !first {
			out += "&"
		}
		first = false
		out += fmt.Sprintf("%s=%v", k, v)
	}
	return out
}

func parseRetryAfter(header string) time.Duration {
	var secs int
	if _, err := fmt.Sscanf(header, "%d", &secs); err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
