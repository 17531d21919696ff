package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/vendor-attendance/internal/application/service"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

// StatusRequest is the body of POST /api/statuses. The vendor is the actor.
type StatusRequest struct {
	Date           string   `json:"date" binding:"required"`
	Status         string   `json:"status" binding:"required"`
	HalfDaySession string   `json:"half_day_session"`
	Location       string   `json:"location"`
	InTime         string   `json:"in_time"`
	OutTime        string   `json:"out_time"`
	TotalHours     *float64 `json:"total_hours"`
	Comments       string   `json:"comments"`
}

// DetectRequest is the body of POST /api/mismatches/detect.
// With vendor_id set only that vendor on date is evaluated; otherwise every
// active vendor on [from, to].
type DetectRequest struct {
	VendorID string `json:"vendor_id"`
	Date     string `json:"date"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// ExplainRequest is the body of POST /api/mismatches/:id/explain
type ExplainRequest struct {
	Explanation string `json:"explanation" binding:"required"`
}

// SubmitStatus handles POST /api/statuses
func (h *Handlers) SubmitStatus(c *gin.Context) {
	vendorID, authed := actor(c)
	if !authed {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "date and status are required")
		return
	}
	date, valid := parseDate(c, "date", req.Date)
	if !valid {
		return
	}
	in, valid := parseClock(c, "in_time", date, req.InTime)
	if !valid {
		return
	}
	out, valid := parseClock(c, "out_time", date, req.OutTime)
	if !valid {
		return
	}

	status, err := h.services.Statuses.Submit(c.Request.Context(), service.SubmitStatusInput{
		VendorID:       vendorID,
		Date:           date,
		Status:         entity.StatusType(req.Status),
		HalfDaySession: entity.HalfDaySession(req.HalfDaySession),
		Location:       req.Location,
		InTime:         in,
		OutTime:        out,
		TotalHours:     req.TotalHours,
		Comments:       req.Comments,
	})
	if err != nil {
		h.fail(c, "submit status", err)
		return
	}
	ok(c, http.StatusOK, status)
}

// GetStatus handles GET /api/statuses/:id
func (h *Handlers) GetStatus(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	status, err := h.services.Statuses.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get status", err)
		return
	}
	ok(c, http.StatusOK, status)
}

// ListStatuses handles GET /api/vendors/:id/statuses?from=&to=
func (h *Handlers) ListStatuses(c *gin.Context) {
	from, valid := parseDate(c, "from", c.Query("from"))
	if !valid {
		return
	}
	to, valid := parseDate(c, "to", c.Query("to"))
	if !valid {
		return
	}

	list, err := h.services.Statuses.ListForVendor(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		h.fail(c, "list statuses", err)
		return
	}
	ok(c, http.StatusOK, list)
}

// ApproveStatus handles POST /api/statuses/:id/approve
func (h *Handlers) ApproveStatus(c *gin.Context) {
	h.decideStatus(c, h.services.Statuses.Approve)
}

// RejectStatus handles POST /api/statuses/:id/reject
func (h *Handlers) RejectStatus(c *gin.Context) {
	h.decideStatus(c, h.services.Statuses.Reject)
}

func (h *Handlers) decideStatus(c *gin.Context, decide func(ctx context.Context, managerID string, id int64, comments string) (*entity.DailyStatus, error)) {
	managerID, authed := actor(c)
	if !authed {
		return
	}
	id, valid := idParam(c)
	if !valid {
		return
	}
	req, valid := bindDecision(c)
	if !valid {
		return
	}

	status, err := decide(c.Request.Context(), managerID, id, req.Comments)
	if err != nil {
		h.fail(c, "decide status", err)
		return
	}
	ok(c, http.StatusOK, status)
}

// DetectMismatches handles POST /api/mismatches/detect
func (h *Handlers) DetectMismatches(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ctx := c.Request.Context()

	if req.VendorID != "" {
		date, valid := parseDate(c, "date", req.Date)
		if !valid {
			return
		}
		outcome, err := h.services.Mismatches.DetectForDate(ctx, req.VendorID, date)
		if err != nil {
			h.fail(c, "detect mismatch", err)
			return
		}
		ok(c, http.StatusOK, outcome)
		return
	}

	from, valid := parseDate(c, "from", req.From)
	if !valid {
		return
	}
	to := from
	if req.To != "" {
		if to, valid = parseDate(c, "to", req.To); !valid {
			return
		}
	}

	summary, err := h.services.Mismatches.DetectRange(ctx, from, to)
	if err != nil && summary == nil {
		h.fail(c, "detect mismatches", err)
		return
	}
	if err != nil {
		h.logger.Error("Detection finished with failures", "from", req.From, "to", req.To, "error", err)
	}
	ok(c, http.StatusOK, summary)
}

// GetMismatch handles GET /api/mismatches/:id
func (h *Handlers) GetMismatch(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	m, err := h.services.Mismatches.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get mismatch", err)
		return
	}
	ok(c, http.StatusOK, m)
}

// ExplainMismatch handles POST /api/mismatches/:id/explain. The vendor is the actor.
func (h *Handlers) ExplainMismatch(c *gin.Context) {
	vendorID, authed := actor(c)
	if !authed {
		return
	}
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "explanation is required")
		return
	}

	m, err := h.services.Mismatches.Explain(c.Request.Context(), vendorID, id, req.Explanation)
	if err != nil {
		h.fail(c, "explain mismatch", err)
		return
	}
	ok(c, http.StatusOK, m)
}

// ApproveMismatch handles POST /api/mismatches/:id/approve
func (h *Handlers) ApproveMismatch(c *gin.Context) {
	h.decideMismatch(c, h.services.Mismatches.Approve)
}

// RejectMismatch handles POST /api/mismatches/:id/reject
func (h *Handlers) RejectMismatch(c *gin.Context) {
	h.decideMismatch(c, h.services.Mismatches.Reject)
}

func (h *Handlers) decideMismatch(c *gin.Context, decide func(ctx context.Context, managerID string, id int64, comments string) (*entity.MismatchRecord, error)) {
	managerID, authed := actor(c)
	if !authed {
		return
	}
	id, valid := idParam(c)
	if !valid {
		return
	}
	req, valid := bindDecision(c)
	if !valid {
		return
	}

	m, err := decide(c.Request.Context(), managerID, id, req.Comments)
	if err != nil {
		h.fail(c, "decide mismatch", err)
		return
	}
	ok(c, http.StatusOK, m)
}
