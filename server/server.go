package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-property-market/auth"
	"github.com/jrsteele09/go-property-market/complaints"
	"github.com/jrsteele09/go-property-market/internal/config"
	"github.com/jrsteele09/go-property-market/internal/metrics"
	"github.com/jrsteele09/go-property-market/notifications"
	"github.com/jrsteele09/go-property-market/payments"
	"github.com/jrsteele09/go-property-market/properties"
	"github.com/jrsteele09/go-property-market/reviews"
)

// Services are the domain services the HTTP API exposes
type Services struct {
	Auth          *auth.Service
	Properties    *properties.Service
	Payments      *payments.Service
	Reviews       *reviews.Service
	Complaints    *complaints.Service
	Notifications *notifications.Service
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	services Services
	media    http.HandlerFunc
	limiter  *RateLimiter
	proxies  config.TrustedProxies
}

type Option func(*Server)

// WithMediaHandler serves object store files under /media/
func WithMediaHandler(h http.HandlerFunc) Option {
	return func(s *Server) {
		s.media = h
	}
}

// WithRateLimiter replaces the limiter built from config
func WithRateLimiter(l *RateLimiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

func New(ctx context.Context, cfg config.Config, services Services, opts ...Option) (*Server, error) {
	if services.Auth == nil || services.Properties == nil || services.Payments == nil ||
		services.Reviews == nil || services.Complaints == nil || services.Notifications == nil {
		return nil, fmt.Errorf("[Server New] every service is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		services: services,
		limiter:  NewRateLimiter(cfg.GetRateLimitRPS(), cfg.GetRateLimitBurst()),
		proxies:  cfg.GetTrustedProxies(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.InitialiseSystem(ctx); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// Limiter exposes the auth endpoint limiter so its idle entries can be swept
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// preflight requests never match a method pattern
	if r.Method == http.MethodOptions {
		s.CorsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})(w, r)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, metrics.Instrument(pattern, handler))
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.RegisterRouteFunc(pattern, handler.ServeHTTP)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

const (
	ansiReset = "\033[0m"
	ansiGray  = "\033[90m"
)

// methodColors are ANSI colours for the DEV route listing
var methodColors = map[string]string{
	http.MethodGet:    "\033[32m",
	http.MethodPost:   "\033[34m",
	http.MethodDelete: "\033[33m",
	http.MethodPatch:  "\033[35m",
}

func logRoute(method, path string) {
	color, ok := methodColors[method]
	if !ok {
		color = ansiGray
	}
	log.Debug().Msgf("[%s %-7s%s] %s", color, method, ansiReset, path)
}
