package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const okxBaseURL = "https://www.okx.com"

// OKX fetches market data from the OKX v5 public REST API. Every v5
// response wraps its payload in a {code, msg, data} envelope.
type OKX struct {
	baseURL string
	client  *client
	logger  zerolog.Logger
}

func NewOKX(proxyURL string, logger zerolog.Logger) *OKX {
	l := logger.With().Str("exchange", "okx").Logger()
	return &OKX{
		baseURL: okxBaseURL,
		client:  newClient(proxyURL, 10*time.Second, l),
		logger:  l,
	}
}

func (o *OKX) Name() string { return "okx" }

type okxEnvelope struct {
	Code string            `json:"code"`
	Msg  string            `json:"msg"`
	Data []json.RawMessage `json:"data"`
}

func (o *OKX) getData(ctx context.Context, endpoint string) ([]json.RawMessage, bool) {
	var env okxEnvelope
	if err := o.client.getJSON(ctx, endpoint, &env); err != nil {
		o.logger.Warn().Err(err).Str("url", endpoint).Msg("request failed")
		return nil, false
	}
	if env.Code != "0" {
		o.logger.Warn().Str("code", env.Code).Str("msg", env.Msg).Msg("api error")
		return nil, false
	}
	return env.Data, len(env.Data) > 0
}

func (o *OKX) SpotPrice(ctx context.Context, symbol string) (float64, bool) {
	endpoint := fmt.Sprintf("%s/api/v5/market/ticker?instId=%s-USDT", o.baseURL, symbol)
	data, ok := o.getData(ctx, endpoint)
	if !ok {
		return 0, false
	}
	var tick struct {
		Last string `json:"last"`
	}
	if err := json.Unmarshal(data[0], &tick); err != nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(tick.Last, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

func (o *OKX) FundingRate(ctx context.Context, symbol string) (float64, bool) {
	endpoint := fmt.Sprintf("%s/api/v5/public/funding-rate?instId=%s-USDT-SWAP", o.baseURL, symbol)
	data, ok := o.getData(ctx, endpoint)
	if !ok {
		return 0, false
	}
	var fr struct {
		FundingRate string `json:"fundingRate"`
	}
	if err := json.Unmarshal(data[0], &fr); err != nil {
		return 0, false
	}
	rate, err := strconv.ParseFloat(fr.FundingRate, 64)
	if err != nil {
		return 0, false
	}
	return rate * 100, true
}

// LongShortRatio reads the rubik long/short account ratio. The endpoint
// returns rows of ["ts", "ratio"] string pairs, newest first.
func (o *OKX) LongShortRatio(ctx context.Context, symbol string) (float64, bool) {
	endpoint := fmt.Sprintf("%s/api/v5/rubik/stat/contracts/long-short-account-ratio?ccy=%s&period=1H", o.baseURL, symbol)
	data, ok := o.getData(ctx, endpoint)
	if !ok {
		return 0, false
	}
	var row []string
	if err := json.Unmarshal(data[0], &row); err != nil || len(row) < 2 {
		return 0, false
	}
	ratio, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return 0, false
	}
	return ratio, true
}
