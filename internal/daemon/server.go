package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"mergesync/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Server struct {
	echo     *echo.Echo
	runner   *Runner
	histRepo *repository.HistoryRepository
	port     int
	stopCh   chan struct{}
	log      *zap.Logger
}

func NewServer(runner *Runner, histRepo *repository.HistoryRepository, port int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		runner:   runner,
		histRepo: histRepo,
		port:     port,
		stopCh:   make(chan struct{}, 1),
		log:      log,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)
	s.echo.POST("/sync", s.handleSync)

	g := s.echo.Group("/runs")
	g.GET("", s.handleListRuns)
	g.GET("/stats", s.handleStats)
	g.GET("/:id", s.handleGetRun)
}

// Handler exposes the routes for in-process testing.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() {
	go func() {
		addr := "127.0.0.1:" + strconv.Itoa(s.port)
		s.log.Info("daemon server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("daemon server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.runner.State().Snapshot())
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleSync(c echo.Context) error {
	dryRun := false
	if v := c.QueryParam("dry_run"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid dry_run"})
		}
		dryRun = parsed
	}

	report, err := s.runner.Run(c.Request().Context(), dryRun)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleListRuns(c echo.Context) error {
	if s.histRepo == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "history disabled"})
	}

	n := 20
	if nStr := c.QueryParam("n"); nStr != "" {
		if parsed, err := strconv.Atoi(nStr); err == nil && parsed > 0 {
			n = parsed
		}
	}

	runs, err := s.histRepo.GetRecent(n)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, runs)
}

func (s *Server) handleGetRun(c echo.Context) error {
	if s.histRepo == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "history disabled"})
	}

	run, err := s.histRepo.GetRun(c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleStats(c echo.Context) error {
	if s.histRepo == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "history disabled"})
	}

	stats, err := s.histRepo.GetStats()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, stats)
}
