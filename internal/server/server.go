// Package server exposes the extraction engine over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extraction"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
	healthTimeout    = 2 * time.Second
)

// Extractor runs one extraction.
type Extractor interface {
	Run(ctx context.Context, in entity.ExtractionInput) extraction.Report
}

// RunStore persists extraction runs.
type RunStore interface {
	Save(ctx context.Context, run *entity.ExtractionRun) error
	Get(ctx context.Context, id string) (*entity.ExtractionRun, error)
	Recent(ctx context.Context, limit int) ([]*entity.ExtractionRun, error)
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Server holds the HTTP handlers.
type Server struct {
	engine    Extractor
	runs      RunStore
	maxUpload int64
	logger    *slog.Logger
}

// New creates a Server. runs may be nil, which disables the run log.
func New(engine Extractor, runs RunStore, maxUploadBytes int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &Server{engine: engine, runs: runs, maxUpload: maxUploadBytes, logger: logger}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(s.logger), RequestLogger(s.logger), Recovery(s.logger))

	r.GET("/healthz", s.Health)
	v1 := r.Group("/v1")
	v1.POST("/extractions", s.Extract)
	v1.GET("/extractions", s.List)
	v1.GET("/extractions/:id", s.Get)
	return r
}

// Extract handles a multipart upload in the "file" field.
func (s *Server) Extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			s.fail(c, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.fail(c, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(c, http.StatusBadRequest, "failed to read file")
		return
	}

	in := entity.ExtractionInput{
		Bytes:            data,
		MIMEType:         header.Header.Get("Content-Type"),
		OriginalFilename: header.Filename,
	}
	ctx := c.Request.Context()
	rep := s.engine.Run(ctx, in)
	run := extraction.NewRun(in, rep)

	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			common.LoggerFromContext(ctx, s.logger).Error("run log save failed", "run_id", run.ID, "error", err)
		}
	}
	c.JSON(http.StatusOK, run)
}

// List returns recent runs, newest first.
func (s *Server) List(c *gin.Context) {
	if s.runs == nil {
		s.fail(c, http.StatusServiceUnavailable, "run log is disabled")
		return
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.fail(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := s.runs.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		s.fail(c, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*entity.ExtractionRun{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Get returns one run.
func (s *Server) Get(c *gin.Context) {
	if s.runs == nil {
		s.fail(c, http.StatusServiceUnavailable, "run log is disabled")
		return
	}
	id := c.Param("id")
	if verr := common.NewValidator().Field("id", id, common.UUID).First(); verr != nil {
		s.fail(c, http.StatusBadRequest, "invalid run id: "+verr.Message)
		return
	}
	ctx := c.Request.Context()
	run, err := s.runs.Get(ctx, id)
	switch {
	case errors.Is(err, common.ErrNotFound):
		s.fail(c, http.StatusNotFound, "run not found")
	case err != nil:
		common.LoggerFromContext(ctx, s.logger).Error("get run failed", "run_id", id, "error", err)
		s.fail(c, http.StatusInternalServerError, "failed to load run")
	default:
		c.JSON(http.StatusOK, run)
	}
}

// Health reports whether the server and its run log are reachable.
func (s *Server) Health(c *gin.Context) {
	if s.runs != nil {
		if err := s.runs.HealthCheck(c.Request.Context(), healthTimeout); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "request_id": GetRequestID(c)})
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}
