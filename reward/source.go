package reward

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultSourceTimeout bounds a single price API request.
const DefaultSourceTimeout = 5 * time.Second

// Pair is a base/quote currency pair such as DOGE/USD.
type Pair struct {
	Base  string
	Quote string
}

// DogeUSD is the pair rewards are priced in by default.
var DogeUSD = Pair{Base: "DOGE", Quote: "USD"}

func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// ParsePair parses "DOGE/USD" or "DOGE-USD" (case-insensitive).
func ParsePair(s string) (Pair, error) {
	sep := strings.IndexAny(s, "/-")
	if sep <= 0 || sep == len(s)-1 {
		return Pair{}, fmt.Errorf("%w: %q", ErrInvalidPair, s)
	}
	return Pair{
		Base:  strings.ToUpper(strings.TrimSpace(s[:sep])),
		Quote: strings.ToUpper(strings.TrimSpace(s[sep+1:])),
	}, nil
}

// PriceSource returns the current price of one unit of pair.Base in pair.Quote.
type PriceSource interface {
	Name() string
	Price(ctx context.Context, pair Pair) (float64, error)
}

// HTTPSource queries a public JSON price API.
type HTTPSource struct {
	name    string
	client  *http.Client
	request func(pair Pair) (string, error)
	parse   func(pair Pair, body []byte) (float64, error)
}

var _ PriceSource = (*HTTPSource)(nil)

// Name implements PriceSource.
func (s *HTTPSource) Name() string { return s.name }

// Price implements PriceSource.
func (s *HTTPSource) Price(ctx context.Context, pair Pair) (float64, error) {
	u, err := s.request(pair)
	if err != nil {
		return 0, &PriceFetchError{Source: s.name, Pair: pair, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, &PriceFetchError{Source: s.name, Pair: pair, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, &PriceFetchError{Source: s.name, Pair: pair, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, &PriceFetchError{Source: s.name, Pair: pair, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &PriceFetchError{Source: s.name, Pair: pair, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	price, err := s.parse(pair, body)
	if err != nil {
		return 0, &PriceFetchError{Source: s.name, Pair: pair, Err: err}
	}
	if price <= 0 {
		return 0, &PriceFetchError{Source: s.name, Pair: pair, Err: fmt.Errorf("%w: %v", ErrInvalidPrice, price)}
	}
	return price, nil
}

func newHTTPClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: DefaultSourceTimeout}
}

func parseDecimal(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return v, nil
}

// Default API endpoints.
const (
	CoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price"
	BinanceURL   = "https://api.binance.com/api/v3/ticker/price"
	CoinbaseURL  = "https://api.coinbase.com/v2/exchange-rates"
)

var coinGeckoIDs = map[string]string{
	"DOGE": "dogecoin",
	"BTC":  "bitcoin",
	"LTC":  "litecoin",
}

// NewCoinGecko returns a source for the CoinGecko simple price API. An
// empty baseURL selects CoinGeckoURL; a nil client uses a 5 s timeout.
func NewCoinGecko(baseURL string, client *http.Client) *HTTPSource {
	if baseURL == "" {
		baseURL = CoinGeckoURL
	}
	return &HTTPSource{
		name:   "coingecko",
		client: newHTTPClient(client),
		request: func(pair Pair) (string, error) {
			id, ok := coinGeckoIDs[pair.Base]
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrUnsupportedPair, pair)
			}
			q := url.Values{"ids": {id}, "vs_currencies": {strings.ToLower(pair.Quote)}}
			return baseURL + "?" + q.Encode(), nil
		},
		parse: func(pair Pair, body []byte) (float64, error) {
			var out map[string]map[string]float64
			if err := json.Unmarshal(body, &out); err != nil {
				return 0, err
			}
			price, ok := out[coinGeckoIDs[pair.Base]][strings.ToLower(pair.Quote)]
			if !ok {
				return 0, fmt.Errorf("%w: missing %s in response", ErrInvalidPrice, pair)
			}
			return price, nil
		},
	}
}

// NewBinance returns a source for the Binance ticker API. USD is quoted
// through the USDT market.
func NewBinance(baseURL string, client *http.Client) *HTTPSource {
	if baseURL == "" {
		baseURL = BinanceURL
	}
	return &HTTPSource{
		name:   "binance",
		client: newHTTPClient(client),
		request: func(pair Pair) (string, error) {
			quote := pair.Quote
			if quote == "USD" {
				quote = "USDT"
			}
			return baseURL + "?" + url.Values{"symbol": {pair.Base + quote}}.Encode(), nil
		},
		parse: func(_ Pair, body []byte) (float64, error) {
			var out struct {
				Symbol string `json:"symbol"`
				Price  string `json:"price"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return 0, err
			}
			return parseDecimal(out.Price)
		},
	}
}

// NewCoinbase returns a source for the Coinbase exchange-rates API.
func NewCoinbase(baseURL string, client *http.Client) *HTTPSource {
	if baseURL == "" {
		baseURL = CoinbaseURL
	}
	return &HTTPSource{
		name:   "coinbase",
		client: newHTTPClient(client),
		request: func(pair Pair) (string, error) {
			return baseURL + "?" + url.Values{"currency": {pair.Base}}.Encode(), nil
		},
		parse: func(pair Pair, body []byte) (float64, error) {
			var out struct {
				Data struct {
					Currency string            `json:"currency"`
					Rates    map[string]string `json:"rates"`
				} `json:"data"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return 0, err
			}
			rate, ok := out.Data.Rates[pair.Quote]
			if !ok {
				return 0, fmt.Errorf("%w: missing %s rate", ErrInvalidPrice, pair.Quote)
			}
			return parseDecimal(rate)
		},
	}
}

// MultiSource asks each source in order and returns the first positive price.
type MultiSource struct {
	sources []PriceSource
	logger  *zap.Logger
}

var _ PriceSource = (*MultiSource)(nil)

// NewMultiSource combines sources in priority order.
func NewMultiSource(logger *zap.Logger, sources ...PriceSource) *MultiSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiSource{sources: sources, logger: logger}
}

// DefaultSources returns CoinGecko, Binance and Coinbase in that order.
func DefaultSources(client *http.Client, logger *zap.Logger) *MultiSource {
	return NewMultiSource(logger,
		NewCoinGecko("", client),
		NewBinance("", client),
		NewCoinbase("", client),
	)
}

// Name implements PriceSource.
func (m *MultiSource) Name() string {
	names := make([]string, len(m.sources))
	for i, s := range m.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

// Price implements PriceSource. If every source fails the joined
// per-source errors are returned.
func (m *MultiSource) Price(ctx context.Context, pair Pair) (float64, error) {
	var errs []error
	for _, s := range m.sources {
		price, err := s.Price(ctx, pair)
		if err == nil && price > 0 {
			m.logger.Debug("price fetched", zap.String("source", s.Name()), zap.Stringer("pair", pair), zap.Float64("price", price))
			return price, nil
		}
		if err == nil {
			err = &PriceFetchError{Source: s.Name(), Pair: pair, Err: fmt.Errorf("%w: %v", ErrInvalidPrice, price)}
		}
		m.logger.Warn("price source failed", zap.String("source", s.Name()), zap.Stringer("pair", pair), zap.Error(err))
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return 0, &PriceFetchError{Source: "none", Pair: pair, Err: errors.New("no price sources configured")}
	}
	return 0, errors.Join(errs...)
}
