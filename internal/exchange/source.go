package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Source is the market-data capability consumed by the collector. All
// methods report transient unavailability as ok=false rather than an error:
// a missing quote degrades the current tick, it never aborts it.
type Source interface {
	SpotPrice(ctx context.Context, symbol string) (float64, bool)
	FundingRate(ctx context.Context, symbol string) (float64, bool)
	LongShortRatio(ctx context.Context, symbol string) (float64, bool)
	Name() string
}

// New builds the configured exchange client. An unknown name is a
// configuration error, not a transient one.
func New(name, proxyURL string, logger zerolog.Logger) (Source, error) {
	switch name {
	case "binance":
		return NewBinance(proxyURL, logger), nil
	case "okx":
		return NewOKX(proxyURL, logger), nil
	default:
		return nil, fmt.Errorf("unsupported exchange %q (supported: binance, okx)", name)
	}
}

const (
	fetchAttempts = 3
	fetchBackoff  = 2 * time.Second
)

// client wraps an http.Client with a request-rate cap and bounded retry.
type client struct {
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func newClient(proxyURL string, timeout time.Duration, logger zerolog.Logger) *client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		logger:  logger,
	}
}

// getJSON fetches endpoint and decodes the body into out, retrying with
// exponential backoff on transport errors and non-200 statuses.
func (c *client) getJSON(ctx context.Context, endpoint string, out any) error {
	var lastErr error
	backoff := fetchBackoff
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		lastErr = c.tryGetJSON(ctx, endpoint, out)
		if lastErr == nil {
			return nil
		}
		c.logger.Debug().Err(lastErr).Int("attempt", attempt+1).Str("url", endpoint).Msg("fetch failed")
	}
	return lastErr
}

func (c *client) tryGetJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
