package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/vendor-attendance/internal/application/service"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

// CorrectionRequest is the body of POST /api/billing/corrections. The manager is the actor.
type CorrectionRequest struct {
	VendorID string   `json:"vendor_id" binding:"required"`
	Date     string   `json:"date" binding:"required"`
	NewHours *float64 `json:"new_hours" binding:"required"`
	Reason   string   `json:"reason"`
}

// BillingWindow handles GET /api/billing/window
func (h *Handlers) BillingWindow(c *gin.Context) {
	w, err := h.services.Billing.Window(c.Request.Context())
	if err != nil {
		h.fail(c, "billing window", err)
		return
	}
	ok(c, http.StatusOK, w)
}

// CorrectHours handles POST /api/billing/corrections
func (h *Handlers) CorrectHours(c *gin.Context) {
	managerID, authed := actor(c)
	if !authed {
		return
	}
	var req CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "vendor_id, date and new_hours are required")
		return
	}
	date, valid := parseDate(c, "date", req.Date)
	if !valid {
		return
	}

	correction, err := h.services.Billing.Correct(c.Request.Context(), service.CorrectionInput{
		ManagerID: managerID,
		VendorID:  req.VendorID,
		Date:      date,
		NewHours:  *req.NewHours,
		Reason:    req.Reason,
	})
	if err != nil {
		h.fail(c, "correct hours", err)
		return
	}
	ok(c, http.StatusCreated, correction)
}

// CorrectionHistory handles GET /api/vendors/:id/corrections
func (h *Handlers) CorrectionHistory(c *gin.Context) {
	history, err := h.services.Billing.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "correction history", err)
		return
	}
	ok(c, http.StatusOK, history)
}

// Reconciliation handles GET /api/reports/reconciliation?status=&vendor_id=&priority=
func (h *Handlers) Reconciliation(c *gin.Context) {
	managerID, authed := actor(c)
	if !authed {
		return
	}

	report, err := h.services.Reports.Reconciliation(c.Request.Context(), managerID, service.ReportFilter{
		Status:   c.Query("status"),
		VendorID: c.Query("vendor_id"),
		Priority: entity.Severity(c.Query("priority")),
	})
	if err != nil {
		h.fail(c, "reconciliation report", err)
		return
	}
	ok(c, http.StatusOK, report)
}

// AuditTrail handles GET /api/audit/:table/:id
func (h *Handlers) AuditTrail(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	logs, err := h.services.Reports.AuditTrail(c.Request.Context(), c.Param("table"), id)
	if err != nil {
		h.fail(c, "audit trail", err)
		return
	}
	ok(c, http.StatusOK, logs)
}

// ImportSwipes handles POST /api/imports/swipes with a multipart "file" field
func (h *Handlers) ImportSwipes(c *gin.Context) {
	actorID, authed := actor(c)
	if !authed {
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required (max "+strconv.FormatInt(h.maxUploadBytes>>20, 10)+" MB)")
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		badRequest(c, "only .xlsx workbooks are accepted")
		return
	}

	f, err := header.Open()
	if err != nil {
		h.fail(c, "import swipes", err)
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, "import swipes", err)
		return
	}

	result, err := h.services.Imports.ImportWorkbook(c.Request.Context(), header.Filename, content, actorID)
	if err != nil {
		h.fail(c, "import swipes", err)
		return
	}
	ok(c, http.StatusOK, result)
}
