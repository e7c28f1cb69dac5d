// Package search proxies free-text queries to an external JSON search API.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-service/internal/metrics"
	"github.com/JakeFAU/catalog-service/internal/policy/ratelimit"
)

// FailureMessage is returned to callers whenever the upstream cannot be reached.
const FailureMessage = "Error: Failed to fetch data."

// ErrUpstream marks transport failures talking to the search API.
var ErrUpstream = errors.New("search upstream failure")

// Config controls the outbound client.
type Config struct {
	Endpoint  string
	Timeout   time.Duration
	UserAgent string
	RPS       float64
	Burst     int
}

// Proxy forwards queries to the configured endpoint.
type Proxy struct {
	cfg     Config
	client  *http.Client
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// Option customizes a Proxy.
type Option func(*Proxy)

// WithHTTPClient swaps the underlying client. The configured timeout still applies.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Proxy) {
		if c != nil {
			p.client = c
		}
	}
}

// New builds a Proxy.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Proxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Proxy{
		cfg:     cfg,
		client:  &http.Client{Transport: newHTTPTransport()},
		limiter: ratelimit.New(ratelimit.Config{RPS: cfg.RPS, Burst: cfg.Burst}),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client.Timeout = cfg.Timeout
	return p
}

// URL renders the upstream request URL. The query is inserted verbatim.
func (p *Proxy) URL(query string) string {
	return fmt.Sprintf("%s?q=%s&format=json", p.cfg.Endpoint, query)
}

// Fetch performs the upstream GET and returns the raw body regardless of status.
func (p *Proxy) Fetch(ctx context.Context, query string) ([]byte, error) {
	target := p.URL(query)
	if err := p.limiter.Wait(ctx, target); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUpstream, err)
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			p.logger.Debug("close upstream body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}
	p.logger.Debug("upstream response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.String("content", classify(body)),
	)
	return body, nil
}

// Search returns the upstream body as a string or FailureMessage.
func (p *Proxy) Search(ctx context.Context, query string) string {
	start := time.Now()
	body, err := p.Fetch(ctx, query)
	if err != nil {
		metrics.ObserveSearch(metrics.ResultError, time.Since(start))
		p.logger.Warn("search upstream failed", zap.String("query", query), zap.Error(err))
		return FailureMessage
	}
	metrics.ObserveSearch(metrics.ResultOK, time.Since(start))
	return string(body)
}

func classify(body []byte) string {
	switch {
	case len(strings.TrimSpace(string(body))) == 0:
		return "empty"
	case gjson.ValidBytes(body):
		return "json"
	default:
		return "non-json"
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
