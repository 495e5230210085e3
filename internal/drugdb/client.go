// Package drugdb is a client for the RxNav REST API. It resolves drug names
// to RxCUIs and lists known interactions. Every failure is logged and
// reported as "no data".
package drugdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/Nayana519/PulseGuard/internal/interaction"
	"github.com/Nayana519/PulseGuard/pkg/circuitbreaker"
	"github.com/Nayana519/PulseGuard/pkg/logger"
	"github.com/Nayana519/PulseGuard/pkg/metrics"
)

const DefaultBaseURL = "https://rxnav.nlm.nih.gov/REST"

type Config struct {
	BaseURL           string
	ResolveTimeout    time.Duration
	BulkTimeout       time.Duration
	PairTimeout       time.Duration
	RequestsPerSecond float64
	Burst             int
	CacheTTL          time.Duration
	BreakerFailures   int
	BreakerTimeout    time.Duration
}

func (c *Config) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = 5 * time.Second
	}
	if c.BulkTimeout <= 0 {
		c.BulkTimeout = 10 * time.Second
	}
	if c.PairTimeout <= 0 {
		c.PairTimeout = 8 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 15
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}
}

type Client struct {
	cfg     Config
	http    *http.Client
	cache   *cache.Cache
	limiter *rate.Limiter
	cb      *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
	metrics *metrics.Metrics
}

var (
	_ interaction.Resolver = (*Client)(nil)
	_ interaction.Lookup   = (*Client)(nil)
)

func NewClient(cfg Config, log *logger.Logger, m *metrics.Metrics) *Client {
	cfg.setDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "rxnav",
			MaxFailures: cfg.BreakerFailures,
			Timeout:     cfg.BreakerTimeout,
		}),
		logger:  log,
		metrics: m,
	}
}

// ResolveIdentifier returns the first RxNorm id for name, retrying once with
// the top spelling suggestion. Resolved and unknown names are both cached.
func (c *Client) ResolveIdentifier(ctx context.Context, name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	if v, ok := c.cache.Get(key); ok {
		id := v.(string)
		return id, id != ""
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ResolveTimeout)
	defer cancel()

	id, err := c.rxcui(ctx, name)
	if err == nil && id == "" {
		var suggestion string
		suggestion, err = c.suggestion(ctx, name)
		if err == nil && suggestion != "" {
			id, err = c.rxcui(ctx, suggestion)
		}
	}
	if err != nil {
		c.logger.Warn("rxcui lookup failed", "name", name, "error", err.Error())
		return "", false
	}

	c.cache.SetDefault(key, id)
	return id, id != ""
}

// Interactions queries the interaction list for ids. Two ids use the
// pairwise timeout, more use the bulk timeout.
func (c *Client) Interactions(ctx context.Context, ids []string) []interaction.RawInteraction {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			valid = append(valid, id)
		}
	}
	if len(valid) < 2 {
		return nil
	}

	op, timeout := "interactions_bulk", c.cfg.BulkTimeout
	if len(valid) == 2 {
		op, timeout = "interactions_pair", c.cfg.PairTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var resp interactionListResponse
	q := url.Values{"rxcuis": {strings.Join(valid, "+")}}
	if err := c.get(ctx, op, "/interaction/list.json", q, &resp); err != nil {
		c.logger.Warn("interaction lookup failed", "rxcuis", strings.Join(valid, "+"), "error", err.Error())
		return nil
	}
	return resp.records()
}

func (c *Client) rxcui(ctx context.Context, name string) (string, error) {
	var resp rxcuiResponse
	q := url.Values{"name": {name}, "allsrc": {"0"}}
	if err := c.get(ctx, "rxcui", "/rxcui.json", q, &resp); err != nil {
		return "", err
	}
	if len(resp.IDGroup.RxNormID) == 0 {
		return "", nil
	}
	return resp.IDGroup.RxNormID[0], nil
}

func (c *Client) suggestion(ctx context.Context, name string) (string, error) {
	var resp suggestionResponse
	q := url.Values{"name": {name}}
	if err := c.get(ctx, "spelling_suggestions", "/spellingsuggestions.json", q, &resp); err != nil {
		return "", err
	}
	if len(resp.SuggestionGroup.SuggestionList.Suggestion) == 0 {
		return "", nil
	}
	return resp.SuggestionGroup.SuggestionList.Suggestion[0], nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		if c.metrics == nil {
			return
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		c.metrics.LookupRequests.WithLabelValues(op, status).Inc()
		c.metrics.LookupLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	return c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return nil
	})
}
