package exchange

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"cryptosentry/internal/model"
)

const fearGreedURL = "https://api.alternative.me/fng/?limit=1"

// FearGreedSource reads the crypto fear & greed index.
type FearGreedSource interface {
	Current(ctx context.Context) (model.FearGreedSample, bool)
}

// AlternativeMe fetches the index from api.alternative.me. The index is
// market-wide, not per-asset.
type AlternativeMe struct {
	url    string
	client *client
	logger zerolog.Logger
}

func NewAlternativeMe(proxyURL string, logger zerolog.Logger) *AlternativeMe {
	l := logger.With().Str("source", "alternative.me").Logger()
	return &AlternativeMe{
		url:    fearGreedURL,
		client: newClient(proxyURL, 30*time.Second, l),
		logger: l,
	}
}

func (a *AlternativeMe) Current(ctx context.Context) (model.FearGreedSample, bool) {
	var out struct {
		Data []struct {
			Value     string `json:"value"`
			Timestamp string `json:"timestamp"`
		} `json:"data"`
	}
	if err := a.client.getJSON(ctx, a.url, &out); err != nil || len(out.Data) == 0 {
		a.logger.Warn().Err(err).Msg("fear-greed index unavailable")
		return model.FearGreedSample{}, false
	}
	value, err := strconv.Atoi(out.Data[0].Value)
	if err != nil || value < 0 || value > 100 {
		a.logger.Warn().Str("value", out.Data[0].Value).Msg("bad fear-greed payload")
		return model.FearGreedSample{}, false
	}
	ts, err := strconv.ParseInt(out.Data[0].Timestamp, 10, 64)
	if err != nil {
		ts = time.Now().Unix()
	}
	return model.FearGreedSample{Time: time.Unix(ts, 0), Value: value}, true
}
