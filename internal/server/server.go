// Package server exposes the crews over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/agentcrew/internal/crew"
)

// Kickoffer runs a configured crew.
type Kickoffer interface {
	Kickoff(ctx context.Context) (crew.CrewOutput, error)
}

// CrewFactory builds a fresh crew for one request input.
type CrewFactory func(input string) (Kickoffer, error)

// Options configures the shared engine middleware.
type Options struct {
	// RateLimit is requests per second across all clients. Zero disables it.
	RateLimit float64
	Burst     int
	// RequestTimeout bounds a crew run. Zero means no extra bound.
	RequestTimeout time.Duration
	// AllowOrigin sets Access-Control-Allow-Origin when non-empty.
	AllowOrigin string
}

func newEngine(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(), Recovery())
	if opts.AllowOrigin != "" {
		r.Use(AllowOrigin(opts.AllowOrigin))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func limited(opts Options) []gin.HandlerFunc {
	if opts.RateLimit <= 0 {
		return nil
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return []gin.HandlerFunc{RateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), burst))}
}

// NewCrewEngine serves POST /agents.
func NewCrewEngine(h *CrewHandler, opts Options) *gin.Engine {
	r := newEngine(opts)
	h.timeout = opts.RequestTimeout
	r.POST("/agents", append(limited(opts), h.HandleAgents)...)
	return r
}

// NewSEOEngine serves POST /seo_analysis and POST /extract.
func NewSEOEngine(h *SEOHandler, opts Options) *gin.Engine {
	r := newEngine(opts)
	h.timeout = opts.RequestTimeout
	mw := limited(opts)
	r.POST("/seo_analysis", append(mw, h.HandleSEO)...)
	r.POST("/extract", append(mw, h.HandleExtract)...)
	return r
}

// Serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully within grace.
func Serve(ctx context.Context, addr string, handler http.Handler, grace time.Duration) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	log.Info().Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
