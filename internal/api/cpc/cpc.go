// Package cpc provides a client for the CPC Corporation historical list price
// web service.
package cpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/useragent"
)

const (
	// ProviderName is the identifier for this provider.
	ProviderName = "cpc"
	// DefaultURL is the historical list price endpoint.
	DefaultURL = "https://vipmbr.cpc.com.tw/cpcstn/listpricewebservice.asmx/getCPCMainProdListPrice_Historical"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second
)

// Options configures the CPC provider.
type Options struct {
	// URL overrides DefaultURL.
	URL string
	// Timeout for a single request. Zero means DefaultTimeout.
	Timeout time.Duration
	// RequestsPerMinute limits outgoing requests. Zero disables the limit.
	RequestsPerMinute int
}

// Provider implements the api.Provider interface for the CPC price list.
type Provider struct {
	client  *http.Client
	url     string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New creates a new CPC provider.
func New(logger zerolog.Logger, opts Options) *Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	endpoint := opts.URL
	if endpoint == "" {
		endpoint = DefaultURL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &Provider{
		client: &http.Client{
			Timeout: timeout,
		},
		url:     endpoint,
		limiter: limiter,
		logger:  logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// FetchPrices posts the product code to the web service and parses the
// returned XML document.
func (p *Provider) FetchPrices(ctx context.Context, productCode string) ([]models.PriceObservation, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	form := url.Values{}
	form.Set("prodid", productCode)

	p.logger.Debug().
		Str("url", p.url).
		Str("productCode", productCode).
		Msg("fetching prices from CPC")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", useragent.Random())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/xml, application/xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	results, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing response XML: %w", err)
	}

	fetchedAt := time.Now()
	for i := range results {
		results[i].FetchedAt = fetchedAt
	}

	p.logger.Info().
		Int("count", len(results)).
		Str("productCode", productCode).
		Msg("fetched prices from CPC")

	return results, nil
}
