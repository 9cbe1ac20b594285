package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fwojciec/entrel"
	"github.com/fwojciec/entrel/pipeline"
	"github.com/gin-gonic/gin"
)

// ShutdownTimeout bounds how long in-flight requests may run after the
// server is asked to stop.
const ShutdownTimeout = 30 * time.Second

// DefaultPageSize is the number of analyses listed when no limit is given.
const DefaultPageSize = 20

// Server exposes the extraction handler and recorded analyses over HTTP.
type Server struct {
	// Analyzer runs the pipeline for /extract and /invoke.
	Analyzer entrel.Analyzer

	// Analyses backs the /analyses endpoints. When nil those endpoints
	// respond with 404.
	Analyses entrel.AnalysisService

	Logger *slog.Logger
}

// NewServer creates a new Server.
func NewServer(analyzer entrel.Analyzer, analyses entrel.AnalysisService, logger *slog.Logger) *Server {
	return &Server{Analyzer: analyzer, Analyses: analyses, Logger: logger}
}

// Handler returns the gin engine serving all routes. Callers choose the gin
// mode with gin.SetMode before the first call.
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(s.logRequests, gin.Recovery())

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/extract", s.handleExtract)
	engine.POST("/invoke", s.handleInvoke)
	engine.GET("/analyses", s.handleListAnalyses)
	engine.GET("/analyses/:id", s.handleGetAnalysis)
	engine.DELETE("/analyses/:id", s.handleDeleteAnalysis)

	return engine
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ListenAndServe listens on addr and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger().Info("listening", "addr", ln.Addr().String())
	return s.Serve(ctx, ln)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleExtract answers GET /extract?url= with the extraction JSON.
func (s *Server) handleExtract(c *gin.Context) {
	event := entrel.Event{QueryParameters: map[string]string{}}
	if url, ok := c.GetQuery(pipeline.URLParameter); ok {
		event.QueryParameters[pipeline.URLParameter] = url
	}

	resp, err := pipeline.NewHandler(s.Analyzer).Handle(c.Request.Context(), event)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Data(resp.StatusCode, "application/json; charset=utf-8", []byte(resp.Body))
}

// handleInvoke answers POST /invoke with the serverless response shape.
func (s *Server) handleInvoke(c *gin.Context) {
	var event entrel.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		s.writeError(c, entrel.Errorf(entrel.EINVALID, "invalid event: %v", err))
		return
	}

	resp, err := pipeline.NewHandler(s.Analyzer).Handle(c.Request.Context(), event)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	if !s.historyEnabled(c) {
		return
	}

	filter := entrel.AnalysisFilter{Limit: DefaultPageSize}
	var err error
	if v := c.Query("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			s.writeError(c, entrel.Errorf(entrel.EINVALID, "invalid limit %q", v))
			return
		}
	}
	if v := c.Query("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			s.writeError(c, entrel.Errorf(entrel.EINVALID, "invalid offset %q", v))
			return
		}
	}
	if v := c.Query("url"); v != "" {
		filter.SourceURL = &v
	}
	if v := c.Query("entity"); v != "" {
		filter.Entity = &v
	}

	analyses, err := s.Analyses.FindAnalyses(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if analyses == nil {
		analyses = []*entrel.Analysis{}
	}
	c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	if !s.historyEnabled(c) {
		return
	}

	analysis, err := s.Analyses.FindAnalysisByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleDeleteAnalysis(c *gin.Context) {
	if !s.historyEnabled(c) {
		return
	}

	if err := s.Analyses.DeleteAnalysis(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) historyEnabled(c *gin.Context) bool {
	if s.Analyses == nil {
		s.writeError(c, entrel.Errorf(entrel.ENOTFOUND, "history is disabled"))
		return false
	}
	return true
}

// writeError responds with the status mapped from the error code. Internal
// error details are logged rather than returned.
func (s *Server) writeError(c *gin.Context, err error) {
	status := pipeline.StatusCode(err)
	message := entrel.ErrorMessage(err)
	if status == http.StatusInternalServerError {
		s.logger().Error("request failed", "path", c.Request.URL.Path, "err", err)
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func (s *Server) logRequests(c *gin.Context) {
	begin := time.Now()
	c.Next()
	s.logger().Info("http",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(begin),
	)
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
