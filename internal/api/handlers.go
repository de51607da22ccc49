package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"backend/internal/engine"
	"backend/internal/export"
	"backend/internal/models"
	"backend/internal/pivot"
)

// session is one registered dataset: the materialized rows, their columnar
// encoding, and the executor that routes pivots between the two.
type session struct {
	id      string
	columns []string
	rows    []pivot.Row
	exec    *pivot.Executor
	created time.Time
}

// columnar reports which path the executor will pick for this session.
func (s *session) columnar(localMaxRows int) bool {
	return localMaxRows > 0 && len(s.rows) > localMaxRows
}

// Handler serves the session and pivot API.
type Handler struct {
	mu           sync.RWMutex
	sessions     map[string]*session
	localMaxRows int
	log          *slog.Logger
}

func NewHandler(localMaxRows int, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		sessions:     make(map[string]*session),
		localMaxRows: localMaxRows,
		log:          log,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions/:id", h.GetSession)
	api.DELETE("/sessions/:id", h.DeleteSession)
	api.POST("/pivot", h.Pivot)
	api.POST("/pivot/export", h.ExportPivot)
}

// CreateSession registers a dataset and builds its columnar encoding.
func (h *Handler) CreateSession(c echo.Context) error {
	var req models.SessionCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid request body"})
	}
	if len(req.Columns) == 0 {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "columns must not be empty"})
	}

	t0 := time.Now()
	store := engine.FromRows(req.Columns, req.Rows)
	s := &session{
		id:      uuid.NewString(),
		columns: req.Columns,
		rows:    req.Rows,
		exec:    pivot.NewExecutor(store, h.localMaxRows),
		created: time.Now(),
	}

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()

	h.log.Info("session registered",
		"session_id", s.id,
		"rows", len(req.Rows),
		"columns", len(req.Columns),
		"columnar", s.columnar(h.localMaxRows),
		"encode_time", time.Since(t0))

	return c.JSON(http.StatusCreated, models.SessionResponse{
		SessionID: s.id,
		NumRows:   len(req.Rows),
		Columns:   req.Columns,
		Columnar:  s.columnar(h.localMaxRows),
	})
}

func (h *Handler) GetSession(c echo.Context) error {
	s, ok := h.lookup(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Detail: "unknown session"})
	}
	return c.JSON(http.StatusOK, models.SessionResponse{
		SessionID: s.id,
		NumRows:   len(s.rows),
		Columns:   s.columns,
		Columnar:  s.columnar(h.localMaxRows),
	})
}

func (h *Handler) DeleteSession(c echo.Context) error {
	h.mu.Lock()
	_, ok := h.sessions[c.Param("id")]
	delete(h.sessions, c.Param("id"))
	h.mu.Unlock()
	if !ok {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Detail: "unknown session"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Pivot runs a spec against the session named by X-Session-Id.
func (h *Handler) Pivot(c echo.Context) error {
	res, done, err := h.runPivot(c)
	if done || err != nil {
		return err
	}
	if res == nil {
		// Superseded by a newer request; nothing to report.
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, res)
}

// ExportPivot runs a spec and responds with a CSV attachment.
func (h *Handler) ExportPivot(c echo.Context) error {
	res, done, err := h.runPivot(c)
	if done || err != nil {
		return err
	}
	if res == nil {
		return c.NoContent(http.StatusNoContent)
	}
	name, data := export.File(res, c.QueryParam("filename"))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}

// runPivot is the shared request path: resolve the session, bind the spec,
// execute, and map engine errors to HTTP codes. done means an error response
// was already written; a nil result otherwise means the computation was
// superseded.
func (h *Handler) runPivot(c echo.Context) (*pivot.Result, bool, error) {
	s, ok := h.lookup(c.Request().Header.Get("X-Session-Id"))
	if !ok {
		return nil, true, c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid or missing X-Session-Id, upload data first"})
	}

	var spec pivot.Spec
	if err := c.Bind(&spec); err != nil {
		return nil, true, c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid pivot spec"})
	}

	req := &pivot.Request{Spec: spec}
	if !s.columnar(h.localMaxRows) {
		req.Rows = s.rows
	}

	t0 := time.Now()
	res, err := s.exec.Execute(c.Request().Context(), req)
	switch {
	case errors.Is(err, pivot.ErrStale):
		return nil, false, nil
	case errors.Is(err, pivot.ErrMalformedRule):
		return nil, true, c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: err.Error()})
	case errors.Is(err, pivot.ErrRemote):
		h.log.Error("columnar pivot failed", "session_id", s.id, "error", err)
		return nil, true, c.JSON(http.StatusBadGateway, models.ErrorResponse{Detail: err.Error()})
	case err != nil:
		h.log.Error("pivot failed", "session_id", s.id, "error", err)
		return nil, true, c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: err.Error()})
	}

	h.log.Info("pivot computed",
		"session_id", s.id,
		"rows_out", len(res.Data),
		"columns_out", len(res.Columns),
		"time", time.Since(t0))
	return res, false, nil
}

func (h *Handler) lookup(id string) (*session, bool) {
	if id == "" {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}
