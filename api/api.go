// Package api exposes the correlation engine over HTTP: a run trigger
// endpoint, health, and Prometheus metrics, behind JWT auth and
// per-client rate limiting.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"argus/config"
	"argus/correlate"
)

// rateLimiterEntry holds a per-client limiter with last seen time.
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Runner triggers one correlation pass.
type Runner interface {
	Run(ctx context.Context, params correlate.RunParams) (*correlate.RunResult, error)
}

// API is the HTTP server for the correlation service.
type API struct {
	router *mux.Router
	server *http.Server
	engine Runner
	config *config.Config
	logger *zap.SugaredLogger

	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	stopCh         chan struct{}
}

// NewAPI creates the API server around a correlation runner.
func NewAPI(engine Runner, cfg *config.Config, logger *zap.SugaredLogger) *API {
	a := &API{
		router:       mux.NewRouter(),
		engine:       engine,
		config:       cfg,
		logger:       logger,
		rateLimiters: make(map[string]*rateLimiterEntry),
		stopCh:       make(chan struct{}),
	}
	a.setupRoutes()
	go a.cleanupRateLimiters()
	return a
}

func (a *API) setupRoutes() {
	a.router.Use(a.rateLimitMiddleware)

	run := a.router.PathPrefix("/api/v1/correlation").Subrouter()
	run.Use(a.jwtAuthMiddleware)
	run.Use(a.requireAdmin)
	run.HandleFunc("/run", a.runCorrelation).Methods("POST")

	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())
}

// Handler exposes the router for tests.
func (a *API) Handler() http.Handler {
	return a.router
}

// Start starts the API server, with TLS when configured.
func (a *API) Start() error {
	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.API.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if a.config.API.TLS {
		return a.server.ListenAndServeTLS(a.config.API.CertFile, a.config.API.KeyFile)
	}
	return a.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (a *API) Stop(ctx context.Context) error {
	close(a.stopCh)
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}

func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !a.getRateLimiter(client).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) getRateLimiter(client string) *rate.Limiter {
	a.rateLimitersMu.Lock()
	defer a.rateLimitersMu.Unlock()

	entry, ok := a.rateLimiters[client]
	if !ok {
		limit := rate.Limit(a.config.API.RateLimit)
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(limit, a.config.API.RateLimit*2)}
		a.rateLimiters[client] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// cleanupRateLimiters drops limiter entries idle for more than ten
// minutes so the map does not grow with every client ever seen.
func (a *API) cleanupRateLimiters() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-10 * time.Minute)
			a.rateLimitersMu.Lock()
			for client, entry := range a.rateLimiters {
				if entry.lastSeen.Before(cutoff) {
					delete(a.rateLimiters, client)
				}
			}
			a.rateLimitersMu.Unlock()
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
