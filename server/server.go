// Package server exposes price quotes and inscription jobs over HTTP.
package server

import (
	"net/http"
	"time"

	cache "github.com/chenyahui/gin-cache"
	persistence "github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitfsorg/doginals-go/envelope"
	"github.com/bitfsorg/doginals-go/inscribe"
)

// DefaultPriceCacheTTL bounds how long a GET /v1/price response is reused.
const DefaultPriceCacheTTL = 30 * time.Second

// Options tune the HTTP layer.
type Options struct {
	PriceCacheTTL  time.Duration
	MaxUploadBytes int64
}

// Server routes HTTP requests to an inscription service.
type Server struct {
	svc        *inscribe.Service
	opts       Options
	priceCache *persistence.MemoryStore
	engine     *gin.Engine
	logger     *zap.Logger
}

// New builds the router.
func New(svc *inscribe.Service, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PriceCacheTTL <= 0 {
		opts.PriceCacheTTL = DefaultPriceCacheTTL
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = envelope.MaxPayloadSize
	}

	s := &Server{
		svc:        svc,
		opts:       opts,
		priceCache: persistence.NewMemoryStore(opts.PriceCacheTTL),
		logger:     logger,
	}

	r := gin.New()
	r.Use(s.requestLogger(), gin.Recovery())
	r.MaxMultipartMemory = opts.MaxUploadBytes + 1<<20

	v1 := r.Group("/v1")
	{
		v1.GET("/price", cache.Cache(s.priceCache, opts.PriceCacheTTL,
			cache.WithCacheStrategyByRequest(func(c *gin.Context) (bool, cache.Strategy) {
				return true, cache.Strategy{CacheKey: priceCacheKey(c.Request)}
			})), s.price)
		v1.GET("/price/status", s.priceStatus)
		v1.POST("/price/refresh", s.refreshPrice)

		v1.GET("/address", s.address)
		v1.GET("/inscriptions", s.listInscriptions)
		v1.POST("/inscriptions", s.createInscription)
		v1.GET("/inscriptions/:id", s.getInscription)
		v1.POST("/inscriptions/:id/resume", s.resumeInscription)
	}
	s.engine = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func priceCacheKey(r *http.Request) string {
	return uuid.NewMD5(uuid.NameSpaceURL, []byte(r.URL.Path+"?"+r.URL.RawQuery)).String()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", c.ClientIP()))
	}
}
