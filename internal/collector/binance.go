package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"TrendSentinel/internal/model"
)

const (
	binanceMaxRetries = 3
	binanceBackoff    = 200 * time.Millisecond
)

// BinanceConfig represents the configuration of the binance fetcher.
type BinanceConfig struct {
	// APIKey and APISecret are optional; klines are public.
	APIKey    string
	APISecret string
	// BaseURL overrides the spot API endpoint.
	BaseURL string
	// ProxyURL routes requests through an HTTP proxy.
	ProxyURL string
	// RequestsPerSecond bounds the request rate.
	RequestsPerSecond float64
	// Logger represents the fetcher logger.
	Logger *zerolog.Logger
}

// BinanceFetcher implements Fetcher using the Binance spot klines API.
type BinanceFetcher struct {
	cfg     *BinanceConfig
	client  *binance.Client
	limiter *rate.Limiter
}

// NewBinanceFetcher creates a new binance fetcher with optional proxy support.
func NewBinanceFetcher(cfg *BinanceConfig) *BinanceFetcher {
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.ProxyURL != "" {
		if u, err := url.Parse(cfg.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			cfg.Logger.Warn().Msgf("ignoring invalid proxy url %q: %v", cfg.ProxyURL, err)
		}
	}

	client := binance.NewClient(cfg.APIKey, cfg.APISecret)
	client.HTTPClient = &http.Client{Timeout: 15 * time.Second, Transport: transport}
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}

	return &BinanceFetcher{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), int(math.Max(1, rps*2))),
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// FetchCandles fetches klines, retrying transient failures with exponential backoff.
func (f *BinanceFetcher) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) (model.Series, error) {
	var klines []*binance.Kline
	var err error
	for attempt := 0; attempt <= binanceMaxRetries; attempt++ {
		if err = f.limiter.Wait(ctx); err != nil {
			return model.Series{}, err
		}

		klines, err = f.client.NewKlinesService().
			Symbol(symbol).
			Interval(timeframe).
			Limit(limit).
			Do(ctx)
		if err == nil {
			break
		}
		if attempt == binanceMaxRetries || permanent(err) {
			return model.Series{}, fmt.Errorf("fetching %s %s klines: %w", symbol, timeframe, err)
		}

		wait := time.Duration(1<<attempt) * binanceBackoff
		f.cfg.Logger.Warn().Msgf("fetching %s klines failed (attempt %d/%d), retrying in %s: %v",
			symbol, attempt+1, binanceMaxRetries+1, wait, err)

		select {
		case <-ctx.Done():
			return model.Series{}, ctx.Err()
		case <-time.After(wait):
		}
	}

	candles := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, model.Candle{
			Time:                time.UnixMilli(k.OpenTime).UTC(),
			Open:                parseFloat(k.Open),
			High:                parseFloat(k.High),
			Low:                 parseFloat(k.Low),
			Close:               parseFloat(k.Close),
			Volume:              parseFloat(k.Volume),
			TakerBuyBaseVolume:  parseFloat(k.TakerBuyBaseAssetVolume),
			TakerBuyQuoteVolume: parseFloat(k.TakerBuyQuoteAssetVolume),
		})
	}

	series, err := model.NewSeries(candles)
	if err != nil {
		return model.Series{}, fmt.Errorf("building %s series: %w", symbol, err)
	}
	return series, nil
}

// permanent reports whether err is a request error that retrying cannot fix,
// such as an invalid symbol or interval. Binance reports those with codes in the
// -1100 range and below; -10xx codes are server and rate limit conditions.
func permanent(err error) bool {
	var apiErr *common.APIError
	return errors.As(err, &apiErr) && apiErr.IsValid() && apiErr.Code <= -1100
}

// parseFloat parses an exchange numeric field. Unparseable values become NaN.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
