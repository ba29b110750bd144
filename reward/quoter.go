// Package reward prices the inscription reward: a fixed fiat amount
// converted to DOGE at a cached market price.
package reward

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Defaults for Config.
const (
	DefaultTargetFiat    = 4.20
	DefaultCacheTTL      = 5 * time.Minute
	DefaultMaxStale      = time.Hour
	DefaultFallbackPrice = 0.27
	DefaultPrecision     = 2

	koinuPerCoin  = 1e8
	pairCacheSize = 32
	maxPrecision  = 8
)

// Origin says where a quoted price came from.
type Origin string

const (
	OriginLive     Origin = "live"
	OriginCache    Origin = "cache"
	OriginStale    Origin = "stale-cache"
	OriginFallback Origin = "fallback"
)

// Config configures a Quoter.
type Config struct {
	TargetFiat    float64       `mapstructure:"target_fiat" yaml:"target_fiat"`
	Pair          string        `mapstructure:"pair" yaml:"pair"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	MaxStale      time.Duration `mapstructure:"max_stale" yaml:"max_stale"`
	FallbackPrice float64       `mapstructure:"fallback_price" yaml:"fallback_price"`
	Precision     int           `mapstructure:"precision" yaml:"precision"`
}

// DefaultConfig returns the configuration of the $4.20 DOGE reward.
func DefaultConfig() Config {
	return Config{
		TargetFiat:    DefaultTargetFiat,
		Pair:          DogeUSD.String(),
		CacheTTL:      DefaultCacheTTL,
		MaxStale:      DefaultMaxStale,
		FallbackPrice: DefaultFallbackPrice,
		Precision:     DefaultPrecision,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TargetFiat <= 0 {
		c.TargetFiat = d.TargetFiat
	}
	if c.Pair == "" {
		c.Pair = d.Pair
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.MaxStale <= 0 {
		c.MaxStale = d.MaxStale
	}
	if c.FallbackPrice <= 0 {
		c.FallbackPrice = d.FallbackPrice
	}
	if c.Precision < 0 || c.Precision > maxPrecision {
		c.Precision = d.Precision
	}
	return c
}

// Quote is a reward amount priced at a point in time.
type Quote struct {
	Pair   string    `json:"pair"`
	Fiat   float64   `json:"fiat"`
	Price  float64   `json:"price"`
	Origin Origin    `json:"source"`
	Native float64   `json:"native"` // rounded to the configured precision
	Koinu  uint64    `json:"koinu"`
	At     time.Time `json:"at"`
}

// Display renders the quote as "~15.56 DOGE (~$0.27/DOGE)".
func (q Quote) Display() string {
	return fmt.Sprintf("~%s DOGE (~$%.2f/DOGE)", strconv.FormatFloat(q.Native, 'f', -1, 64), q.Price)
}

// ShortDisplay renders the quote as "~15.56 DOGE (~$4.20)".
func (q Quote) ShortDisplay() string {
	return fmt.Sprintf("~%s DOGE (~$%.2f)", strconv.FormatFloat(q.Native, 'f', -1, 64), q.Fiat)
}

// CacheStatus reports the cached price of the configured pair.
type CacheStatus struct {
	Pair        string    `json:"pair"`
	Price       float64   `json:"price"`
	LastUpdated time.Time `json:"last_updated"` // zero if never fetched
	IsStale     bool      `json:"is_stale"`
}

type entry struct {
	price   float64
	fetched time.Time
	expired bool
}

// Quoter caches prices per pair and converts fiat amounts to DOGE. It never
// fails: when every source is down it serves the last good price while it
// is younger than MaxStale, and the fallback price after that.
type Quoter struct {
	source PriceSource
	cfg    Config
	pair   Pair
	logger *zap.Logger

	// mu guards cache updates; fetches run outside it and concurrent
	// fetches of one pair share a single source call.
	mu      sync.Mutex
	cache   *lru.Cache[Pair, entry]
	fetches singleflight.Group
	now     func() time.Time
}

// NewQuoter creates a quoter over source. An unparsable cfg.Pair is an error.
func NewQuoter(source PriceSource, cfg Config, logger *zap.Logger) (*Quoter, error) {
	cfg = cfg.withDefaults()
	pair, err := ParsePair(cfg.Pair)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[Pair, entry](pairCacheSize)
	if err != nil {
		return nil, fmt.Errorf("reward: create cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Quoter{
		source: source,
		cfg:    cfg,
		pair:   pair,
		logger: logger,
		cache:  cache,
		now:    time.Now,
	}, nil
}

// Config returns the effective configuration.
func (q *Quoter) Config() Config {
	return q.cfg
}

// Price returns the price of pair and where it came from.
func (q *Quoter) Price(ctx context.Context, pair Pair) (float64, Origin) {
	q.mu.Lock()
	now := q.now()
	cached, ok := q.cache.Get(pair)
	q.mu.Unlock()

	if ok && !cached.expired && now.Sub(cached.fetched) < q.cfg.CacheTTL {
		q.logger.Debug("using cached price", zap.Stringer("pair", pair), zap.Float64("price", cached.price))
		return cached.price, OriginCache
	}

	if q.source != nil {
		price, err := q.fetch(ctx, pair)
		if err == nil {
			return price, OriginLive
		}
		q.logger.Warn("price fetch failed", zap.Stringer("pair", pair), zap.Error(err))
	}

	if ok && now.Sub(cached.fetched) < q.cfg.MaxStale {
		q.logger.Warn("using stale price",
			zap.Stringer("pair", pair),
			zap.Float64("price", cached.price),
			zap.Duration("age", now.Sub(cached.fetched)))
		return cached.price, OriginStale
	}
	q.logger.Warn("using fallback price", zap.Stringer("pair", pair), zap.Float64("price", q.cfg.FallbackPrice))
	return q.cfg.FallbackPrice, OriginFallback
}

// fetch asks the source for pair and caches a positive answer. Callers
// arriving while a fetch of the same pair is running wait for its result.
func (q *Quoter) fetch(ctx context.Context, pair Pair) (float64, error) {
	v, err, _ := q.fetches.Do(pair.String(), func() (any, error) {
		price, err := q.source.Price(ctx, pair)
		if err != nil {
			return 0.0, err
		}
		if price <= 0 {
			return 0.0, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
		}
		q.mu.Lock()
		q.cache.Add(pair, entry{price: price, fetched: q.now()})
		q.mu.Unlock()
		q.logger.Info("price updated", zap.Stringer("pair", pair), zap.Float64("price", price))
		return price, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// QuoteReward converts fiat to DOGE at the configured pair's price.
func (q *Quoter) QuoteReward(ctx context.Context, fiat float64) Quote {
	price, origin := q.Price(ctx, q.pair)
	native := roundTo(fiat/price, q.cfg.Precision)
	quote := Quote{
		Pair:   q.pair.String(),
		Fiat:   fiat,
		Price:  price,
		Origin: origin,
		Native: native,
		Koinu:  uint64(math.Round(native * koinuPerCoin)),
		At:     q.now(),
	}
	q.logger.Info("reward quoted",
		zap.Float64("fiat", fiat),
		zap.Float64("price", price),
		zap.String("source", string(origin)),
		zap.Float64("native", native))
	return quote
}

// Quote prices the configured target fiat amount.
func (q *Quoter) Quote(ctx context.Context) Quote {
	return q.QuoteReward(ctx, q.cfg.TargetFiat)
}

// CacheStatus reports the cached price of the configured pair without
// fetching. With nothing cached it reports the fallback price as stale.
func (q *Quoter) CacheStatus() CacheStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	cached, ok := q.cache.Peek(q.pair)
	if !ok {
		return CacheStatus{Pair: q.pair.String(), Price: q.cfg.FallbackPrice, IsStale: true}
	}
	return CacheStatus{
		Pair:        q.pair.String(),
		Price:       cached.price,
		LastUpdated: cached.fetched,
		IsStale:     cached.expired || q.now().Sub(cached.fetched) >= q.cfg.CacheTTL,
	}
}

// Refresh expires the cached price of the configured pair and fetches it
// again. The expired entry still backs the stale fallback.
func (q *Quoter) Refresh(ctx context.Context) (float64, Origin) {
	q.mu.Lock()
	if cached, ok := q.cache.Peek(q.pair); ok {
		cached.expired = true
		q.cache.Add(q.pair, cached)
	}
	q.mu.Unlock()
	return q.Price(ctx, q.pair)
}

func roundTo(v float64, precision int) float64 {
	scale := math.Pow10(precision)
	return math.Round(v*scale) / scale
}
