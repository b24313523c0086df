// Package webapi serves stored candles and recorded runs over HTTP and
// pushes intraday candles over a websocket.
package webapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/ashare/journal"
	"github.com/rustyeddy/ashare/market"
)

// CandleReader is the part of the candle store the API reads.
// *candles.Store implements it.
type CandleReader interface {
	Daily(ctx context.Context, code string, from, to time.Time) ([]market.Candle, error)
	Minute(ctx context.Context, code string, p market.Period, from, to time.Time) ([]market.Candle, error)
	StockName(ctx context.Context, code string) (string, error)
}

// Options configures a Server. Candles is required; Runs may be nil, in
// which case the run routes answer 503.
type Options struct {
	Candles  CandleReader
	Runs     journal.Reader
	Calendar *market.Calendar
	Log      logrus.FieldLogger

	// AllowedOrigins feeds CORS; empty allows any origin.
	AllowedOrigins []string
	// PushInterval is the websocket update period (default 5s).
	PushInterval time.Duration
	// Now is the clock used to default end_date (default time.Now).
	Now func() time.Time
}

type Server struct {
	candles  CandleReader
	runs     journal.Reader
	cal      *market.Calendar
	log      logrus.FieldLogger
	origins  []string
	interval time.Duration
	now      func() time.Time

	router *gin.Engine
}

func NewServer(o Options) (*Server, error) {
	if o.Candles == nil {
		return nil, errors.New("webapi: Candles is required")
	}
	s := &Server{
		candles:  o.Candles,
		runs:     o.Runs,
		cal:      o.Calendar,
		log:      o.Log,
		origins:  o.AllowedOrigins,
		interval: o.PushInterval,
		now:      o.Now,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.interval <= 0 {
		s.interval = 5 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.log))
	r.Use(errorHandler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws/:code", s.streamMin5)

	api := r.Group("/api")
	{
		api.GET("/stock/:code/daily", s.getDaily)
		api.GET("/stock/:code/min5", s.getMin5)

		api.GET("/runs", s.listRuns)
		api.GET("/runs/:id", s.getRun)
		api.GET("/runs/:id/decisions", s.listDecisions)
		api.GET("/runs/:id/equity", s.listEquity)
		api.GET("/runs/:id/org", s.exportOrg)
	}

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	})
	return r
}

// Handler returns the routes wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	opts := cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
	if len(s.origins) == 0 {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	}
	return cors.New(opts).Handler(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("web api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: msg}})
}

// errorHandler turns panics into a 500 JSON error.
func errorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		msg := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			msg = s
		}
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", msg)
	})
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}
