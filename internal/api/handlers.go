package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"podpress/internal/article"
	"podpress/internal/logging"
	"podpress/internal/pipeline"
	"podpress/internal/publish"
)

const (
	msgTaskNotFound   = "task not found"
	msgResultPending  = "result not yet available"
	msgAccepted       = "processing started"
	wordPressTestBody = "<p>This post was created by the podpress WordPress connection test.</p>"
)

func (s *Server) handleProcess(c echo.Context) error {
	var req ProcessRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "request body must be JSON"})
	}

	id, err := s.pipeline.Submit(c.Request().Context(), pipeline.Request{
		AudioURL:   req.FileURL,
		EpisodeURL: req.EpisodeURL,
		Overrides:  req.Settings,
		Client:     c.RealIP(),
	})
	var exceeded *pipeline.QuotaExceeded
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, ProcessResponse{TaskID: id, Message: msgAccepted})
	case errors.As(err, &exceeded):
		return c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:      exceeded.Error(),
			DailyLimit: exceeded.Limit,
			NextReset:  exceeded.Reset.Format("2006-01-02 15:04:05 MST"),
		})
	case errors.Is(err, pipeline.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, pipeline.ErrStopped):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "server is shutting down"})
	case errors.Is(err, pipeline.ErrBusy):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "job queue is full, try again later"})
	default:
		return err
	}
}

func (s *Server) handleStatus(c echo.Context) error {
	task, ok := s.pipeline.Task(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: msgTaskNotFound})
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleResult(c echo.Context) error {
	task, ok := s.pipeline.Task(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: msgTaskNotFound})
	}
	if task.Result == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: msgResultPending})
	}
	return c.JSON(http.StatusOK, task.Result)
}

func (s *Server) handleUsage(c echo.Context) error {
	usage, err := s.pipeline.Usage(c.Request().Context(), c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, FromUsage(usage))
}

func (s *Server) handleDebugTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, FromSummaries(s.pipeline.Tasks(), pipeline.TotalSteps))
}

func (s *Server) handleWordPressTest(c echo.Context) error {
	ctx := c.Request().Context()
	result := WordPressTestResult{
		Settings: WordPressSettings{
			SiteURL:  publish.NormalizeSiteURL(s.settings.SiteURL),
			Username: s.settings.Username,
			Status:   s.settings.Status,
			Timeout:  s.timeout,
		},
	}
	if !s.settings.Complete() {
		result.Error = "wordpress url, username and password are required"
		return c.JSON(http.StatusOK, result)
	}
	if err := s.wordpress.VerifyLogin(ctx, s.settings); err != nil {
		result.Error = err.Error()
		return c.JSON(http.StatusOK, result)
	}
	result.LoginSuccess = true

	published, err := s.wordpress.Submit(ctx, article.Article{
		Title:   "[podpress] WordPress connection test",
		Content: wordPressTestBody,
		Summary: "Connection test post.",
	}, s.settings)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "wordpress test post failed", "wordpress_test_failed",
			logging.Error(err),
		)
		result.Error = err.Error()
		return c.JSON(http.StatusOK, result)
	}
	result.Success = true
	result.PostID = published.PostID
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, FromDependencies(s.checkDeps()))
}
