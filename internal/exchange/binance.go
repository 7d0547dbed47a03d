package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	binanceSpotURL    = "https://api.binance.com"
	binanceFuturesURL = "https://fapi.binance.com"
)

// Binance fetches spot price, funding rate, and top-trader long/short
// account ratio from the Binance public REST APIs.
type Binance struct {
	spotURL    string
	futuresURL string
	client     *client
	logger     zerolog.Logger
}

func NewBinance(proxyURL string, logger zerolog.Logger) *Binance {
	l := logger.With().Str("exchange", "binance").Logger()
	return &Binance{
		spotURL:    binanceSpotURL,
		futuresURL: binanceFuturesURL,
		client:     newClient(proxyURL, 30*time.Second, l),
		logger:     l,
	}
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) SpotPrice(ctx context.Context, symbol string) (float64, bool) {
	var out struct {
		Price string `json:"price"`
	}
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%sUSDT", b.spotURL, symbol)
	if err := b.client.getJSON(ctx, endpoint, &out); err != nil {
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("spot price unavailable")
		return 0, false
	}
	price, err := strconv.ParseFloat(out.Price, 64)
	if err != nil {
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("bad price payload")
		return 0, false
	}
	return price, true
}

func (b *Binance) FundingRate(ctx context.Context, symbol string) (float64, bool) {
	var out []struct {
		FundingRate string `json:"fundingRate"`
	}
	endpoint := fmt.Sprintf("%s/fapi/v1/fundingRate?symbol=%sUSDT&limit=1", b.futuresURL, symbol)
	if err := b.client.getJSON(ctx, endpoint, &out); err != nil || len(out) == 0 {
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("funding rate unavailable")
		return 0, false
	}
	rate, err := strconv.ParseFloat(out[0].FundingRate, 64)
	if err != nil {
		return 0, false
	}
	// Expressed as a percentage, matching the funding thresholds.
	return rate * 100, true
}

func (b *Binance) LongShortRatio(ctx context.Context, symbol string) (float64, bool) {
	var out []struct {
		LongAccount  string `json:"longAccount"`
		ShortAccount string `json:"shortAccount"`
	}
	endpoint := fmt.Sprintf("%s/futures/data/topLongShortAccountRatio?symbol=%sUSDT&period=1h&limit=1", b.futuresURL, symbol)
	if err := b.client.getJSON(ctx, endpoint, &out); err != nil || len(out) == 0 {
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("long/short ratio unavailable")
		return 0, false
	}
	long, err1 := strconv.ParseFloat(out[0].LongAccount, 64)
	short, err2 := strconv.ParseFloat(out[0].ShortAccount, 64)
	if err1 != nil || err2 != nil || short <= 0 {
		return 0, false
	}
	return long / short, true
}
