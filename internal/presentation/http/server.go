package http

import (
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"spotlight/app/internal/domain/discovery"
)

// Options configures the HTTP server wiring.
type Options struct {
	DiscoveryService discovery.Service
	DB               *gorm.DB
	Logger           *logrus.Logger
	SentryHub        *sentry.Hub
	RateLimiter      RateLimiterSettings
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server exposes the discovery API via Huma and the HTML report via templ components.
type Server struct {
	api         huma.API
	mux         *stdhttp.ServeMux
	discoveries discovery.Service
	db          *gorm.DB
	logger      *logrus.Logger
	sentry      *sentry.Hub
	rateLimiter *RateLimiter
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.DiscoveryService == nil {
		return nil, eris.New("discovery service is required")
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Spotlight", "1.0.0")
	config.Info.Description = "Generates trend analyses for a field of topic and a set of keywords."

	srv := &Server{
		api:         humago.New(mux, config),
		mux:         mux,
		discoveries: opts.DiscoveryService,
		db:          opts.DB,
		logger:      opts.Logger,
		sentry:      opts.SentryHub,
		rateLimiter: NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL),
	}

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(s.middlewareChain()...)
}

func (s *Server) registerRoutes() {
	s.registerCreateDiscoveryRoute()
	s.registerListDiscoveriesRoute()
	s.registerGetDiscoveryRoute()
	s.registerReportRoute()
	s.registerUsageRoute()
	s.registerHealthRoute()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
