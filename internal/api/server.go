package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"podpress/internal/article"
	"podpress/internal/config"
	"podpress/internal/deps"
	"podpress/internal/logging"
	"podpress/internal/pipeline"
	"podpress/internal/publish"
	"podpress/internal/quota"
	"podpress/internal/services"
	"podpress/internal/tasks"
)

// Pipeline is the job surface the API drives.
type Pipeline interface {
	Submit(ctx context.Context, req pipeline.Request) (string, error)
	Task(id string) (tasks.Task, bool)
	Tasks() []tasks.Summary
	Usage(ctx context.Context, client string) (quota.Usage, error)
}

// WordPressTester checks WordPress credentials end to end.
type WordPressTester interface {
	VerifyLogin(ctx context.Context, settings publish.Settings) error
	Submit(ctx context.Context, a article.Article, settings publish.Settings) (publish.Result, error)
}

// Server is the HTTP front end.
type Server struct {
	echo      *echo.Echo
	pipeline  Pipeline
	wordpress WordPressTester
	settings  publish.Settings
	timeout   int
	token     string
	logger    *slog.Logger
	checkDeps func() []deps.Status
}

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWordPressTester replaces the client used by the WordPress test route.
func WithWordPressTester(tester WordPressTester) Option {
	return func(s *Server) {
		s.wordpress = tester
	}
}

// WithDependencyCheck replaces the binary availability check.
func WithDependencyCheck(check func() []deps.Status) Option {
	return func(s *Server) {
		if check != nil {
			s.checkDeps = check
		}
	}
}

// NewServer builds the echo instance and registers routes.
func NewServer(cfg *config.Config, p Pipeline, opts ...Option) *Server {
	s := &Server{
		pipeline:  p,
		settings:  publish.SettingsFromConfig(cfg),
		timeout:   cfg.WordPress.Timeout,
		token:     strings.TrimSpace(cfg.Paths.APIToken),
		logger:    logging.NewNop(),
		checkDeps: func() []deps.Status { return deps.CheckBinaries(deps.Pipeline()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.wordpress == nil {
		s.wordpress = publish.NewClient(publish.WithLogger(s.logger))
	}
	s.logger = logging.NewComponentLogger(s.logger, "api")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestContext)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logging.WithContext(c.Request().Context(), s.logger).Debug("http request",
				logging.String(logging.FieldEventType, "http_request"),
				logging.String("method", v.Method),
				logging.String("uri", v.URI),
				logging.Int("status", v.Status),
				logging.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	g := e.Group("/api", s.auth)
	g.POST("/process", s.handleProcess)
	g.GET("/status/:id", s.handleStatus)
	g.GET("/result/:id", s.handleResult)
	g.GET("/usage-info", s.handleUsage)
	g.GET("/debug/tasks", s.handleDebugTasks)
	g.POST("/debug/wordpress-test", s.handleWordPressTest)
	g.GET("/health", s.handleHealth)

	s.echo = e
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves on bind until ctx is cancelled.
func (s *Server) Run(ctx context.Context, bind string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(bind)
	}()
	s.logger.Info("api listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("bind", bind),
		logging.Bool("auth", s.token != ""),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api listen: %w", err)
	}
}

// auth validates bearer tokens when a token is configured.
func (s *Server) auth(next echo.HandlerFunc) echo.HandlerFunc {
	if s.token == "" {
		return next
	}
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(header, "Bearer ")), []byte(s.token)) != 1 {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		}
		return next(c)
	}
}

// requestContext carries the request id and client address into the
// request context for log correlation.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := services.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
		ctx = services.WithClient(ctx, c.RealIP())
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(c.Request().Context(), s.logger), "api request failed", "api_error",
			logging.String("uri", c.Request().RequestURI),
			logging.Error(err),
		)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, ErrorResponse{Error: message})
}
