package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinanceSpotPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"64123.50"}`))
	}))
	defer srv.Close()

	b := NewBinance("", zerolog.Nop())
	b.spotURL = srv.URL

	price, ok := b.SpotPrice(context.Background(), "BTC")
	require.True(t, ok)
	assert.Equal(t, 64123.50, price)
}

func TestBinanceLongShortRatio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"longAccount":"0.60","shortAccount":"0.40"}]`))
	}))
	defer srv.Close()

	b := NewBinance("", zerolog.Nop())
	b.futuresURL = srv.URL

	ratio, ok := b.LongShortRatio(context.Background(), "BTC")
	require.True(t, ok)
	assert.InDelta(t, 1.5, ratio, 1e-9)
}

func TestOKXEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51001","msg":"instrument not found","data":[]}`))
	}))
	defer srv.Close()

	o := NewOKX("", zerolog.Nop())
	o.baseURL = srv.URL

	_, ok := o.SpotPrice(context.Background(), "NOPE")
	assert.False(t, ok, "an API-level error degrades to feature absence")
}

func TestOKXSpotPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("instId"))
		w.Write([]byte(`{"code":"0","msg":"","data":[{"last":"64000.1"}]}`))
	}))
	defer srv.Close()

	o := NewOKX("", zerolog.Nop())
	o.baseURL = srv.URL

	price, ok := o.SpotPrice(context.Background(), "BTC")
	require.True(t, ok)
	assert.Equal(t, 64000.1, price)
}

func TestFearGreedCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"value":"22","value_classification":"Extreme Fear","timestamp":"1750000000"}]}`))
	}))
	defer srv.Close()

	src := NewAlternativeMe("", zerolog.Nop())
	src.url = srv.URL

	sample, ok := src.Current(context.Background())
	require.True(t, ok)
	assert.Equal(t, 22, sample.Value)
	assert.Equal(t, int64(1750000000), sample.Time.Unix())
}

func TestNewRejectsUnknownExchange(t *testing.T) {
	_, err := New("mtgox", "", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exchange")
}
