package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

// ActorHeader carries the identity of the caller. Authentication happens upstream.
const ActorHeader = "X-Actor-ID"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		services:       services,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    apperr.Kind `json:"kind,omitempty"`
	// Window is set on window_closed errors so clients can show the open range
	Window *WindowResponse `json:"window,omitempty"`
}

// WindowResponse describes the editable range of a refused correction
type WindowResponse struct {
	Date        string `json:"date"`
	AllowedFrom string `json:"allowed_from"`
	AllowedTo   string `json:"allowed_to"`
	Reason      string `json:"reason"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg, Kind: apperr.KindValidation})
}

// fail writes err with the status its kind maps to
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	kind := apperr.KindOf(err)
	resp := Response{Success: false, Error: err.Error(), Kind: kind}

	var status int
	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
		if errors.Is(err, apperr.ErrStale) {
			status = http.StatusConflict
		}
	case apperr.KindAuthorization:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindWindowClosed:
		status = http.StatusConflict
		var closed *apperr.WindowClosedError
		if errors.As(err, &closed) {
			resp.Window = &WindowResponse{
				Date:        closed.Date.Format(entity.DateLayout),
				AllowedFrom: closed.AllowedFrom.Format(entity.DateLayout),
				AllowedTo:   closed.AllowedTo.Format(entity.DateLayout),
				Reason:      closed.Reason,
			}
		}
	default:
		status = http.StatusInternalServerError
		resp.Error = op + " failed"
		h.logger.Error("Request failed", "op", op, "path", c.Request.URL.Path, "error", err)
	}

	c.JSON(status, resp)
}

// actor returns the caller identity or writes 401 and returns false
func actor(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader(ActorHeader))
	if id == "" {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "missing " + ActorHeader + " header"})
		return "", false
	}
	return id, true
}

func idParam(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id: "+raw)
		return 0, false
	}
	return id, true
}

func parseDate(c *gin.Context, field, raw string) (time.Time, bool) {
	d, err := entity.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		badRequest(c, field+" must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

// parseClock combines an HH:MM value with date; empty yields nil
func parseClock(c *gin.Context, field string, date time.Time, raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("15:04", raw)
	if err != nil {
		badRequest(c, field+" must be HH:MM")
		return nil, false
	}
	at := time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	return &at, true
}

// DecisionRequest is the body of approve and reject calls
type DecisionRequest struct {
	Comments string `json:"comments"`
}

func bindDecision(c *gin.Context) (DecisionRequest, bool) {
	var req DecisionRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return req, false
	}
	return req, true
}
