package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tidwall/gjson"
	"github.com/usertbera/enveye"
	"github.com/usertbera/enveye/deepdiff"
	"go.uber.org/zap"
)

// bodyLimit bounds the /explain request body: a base64 encoded screenshot
// of enveye.MaxScreenshotSize plus the diff.
const bodyLimit = "20M"

// Server exposes an enveye.Explainer as the explanation service.
type Server struct {
	echo      *echo.Echo
	explainer enveye.Explainer
	logger    *zap.Logger
	metrics   *Metrics
	config    *ServerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string

	// Registry receives the server metrics and backs /metrics. A fresh
	// registry is created when nil.
	Registry *prometheus.Registry
}

// ExplainResponse is the response body for POST /explain.
type ExplainResponse struct {
	Explanation string `json:"explanation"`
}

// ErrorResponse is the body of failed /explain requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// NewServer creates a new explanation server.
func NewServer(explainer enveye.Explainer, logger *zap.Logger, cfg *ServerConfig) (*Server, error) {
	if explainer == nil {
		return nil, fmt.Errorf("explainer cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking")
	}
	if cfg == nil {
		cfg = &ServerConfig{Addr: "127.0.0.1:8000"}
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		explainer: explainer,
		logger:    logger,
		metrics:   NewMetrics(cfg.Registry),
		config:    cfg,
	}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST(ExplainPath, s.handleExplain)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.config.Registry, promhttp.HandlerOpts{})))
}

// ServeHTTP lets the server be mounted on any http.Handler stack.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleExplain(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		s.metrics.ExplainRequestsTotal.WithLabelValues(OutcomeBadRequest).Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "could not read request body")
	}

	ec, err := DecodeRequest(body)
	if err != nil {
		s.logger.Warn("invalid explain request", zap.Error(err))
		s.metrics.ExplainRequestsTotal.WithLabelValues(OutcomeBadRequest).Inc()
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	s.metrics.DiffEntries.Observe(float64(ec.Diff.Len()))

	start := time.Now()
	text, err := s.explainer.Explain(c.Request().Context(), ec)
	s.metrics.ExplainDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("explanation failed",
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		)
		s.metrics.ExplainRequestsTotal.WithLabelValues(OutcomeError).Inc()
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: enveye.RequestFailedReason})
	}

	s.metrics.ExplainRequestsTotal.WithLabelValues(OutcomeSuccess).Inc()
	return c.JSON(http.StatusOK, ExplainResponse{Explanation: text})
}

// ErrInvalidRequest is returned by DecodeRequest for unusable request bodies.
var ErrInvalidRequest = errors.New("invalid explain request")

// DecodeRequest parses an /explain request body produced by EncodeRequest.
func DecodeRequest(body []byte) (enveye.ExplanationContext, error) {
	if !gjson.ValidBytes(body) {
		return enveye.ExplanationContext{}, fmt.Errorf("%w: invalid JSON", ErrInvalidRequest)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return enveye.ExplanationContext{}, fmt.Errorf("%w: body is not an object", ErrInvalidRequest)
	}

	var ec enveye.ExplanationContext
	if d := root.Get("diff"); d.Exists() && d.Type != gjson.Null {
		diff, err := deepdiff.ParseBytes([]byte(d.Raw))
		if err != nil {
			return enveye.ExplanationContext{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		ec.Diff = diff
	} else {
		ec.Diff = &enveye.StructuralDiff{}
	}

	ec.ErrorMessage = root.Get("error_message").String()
	ec.LogPath = root.Get("log_path").String()

	switch shot := root.Get("error_screenshot"); shot.Type {
	case gjson.Null:
	case gjson.String:
		screenshot, _, err := enveye.ParseScreenshot(shot.String())
		if err != nil {
			return enveye.ExplanationContext{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		ec.ErrorScreenshot = screenshot
	default:
		return enveye.ExplanationContext{}, fmt.Errorf("%w: error_screenshot must be a string or null", ErrInvalidRequest)
	}

	return ec, nil
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.config.Addr))
	err := s.echo.Start(s.config.Addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
