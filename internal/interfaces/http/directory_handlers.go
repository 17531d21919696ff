package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

// ManagerRequest is the body of POST /api/managers
type ManagerRequest struct {
	ManagerID  string `json:"manager_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// VendorRequest is the body of POST /api/vendors
type VendorRequest struct {
	VendorID   string  `json:"vendor_id" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	Department string  `json:"department"`
	Company    string  `json:"company"`
	ManagerID  *string `json:"manager_id"`
	Location   string  `json:"location"`
	Band       string  `json:"band"`
}

// AssignManagerRequest is the body of PUT /api/vendors/:id/manager
type AssignManagerRequest struct {
	ManagerID string `json:"manager_id"`
}

// HolidayRequest is the body of POST /api/holidays
type HolidayRequest struct {
	Date        string `json:"date" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateManager handles POST /api/managers
func (h *Handlers) CreateManager(c *gin.Context) {
	var req ManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "manager_id and name are required")
		return
	}

	m, err := h.services.Vendors.CreateManager(c.Request.Context(), &entity.Manager{
		ManagerID:  req.ManagerID,
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
	})
	if err != nil {
		h.fail(c, "create manager", err)
		return
	}
	ok(c, http.StatusCreated, m)
}

// ListManagers handles GET /api/managers
func (h *Handlers) ListManagers(c *gin.Context) {
	managers, err := h.services.Vendors.ListManagers(c.Request.Context())
	if err != nil {
		h.fail(c, "list managers", err)
		return
	}
	ok(c, http.StatusOK, managers)
}

// ListTeam handles GET /api/managers/:id/team
func (h *Handlers) ListTeam(c *gin.Context) {
	team, err := h.services.Vendors.ListTeam(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "list team", err)
		return
	}
	ok(c, http.StatusOK, team)
}

// CreateVendor handles POST /api/vendors
func (h *Handlers) CreateVendor(c *gin.Context) {
	var req VendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "vendor_id and name are required")
		return
	}

	v, err := h.services.Vendors.CreateVendor(c.Request.Context(), &entity.Vendor{
		VendorID:   req.VendorID,
		Name:       req.Name,
		Department: req.Department,
		Company:    req.Company,
		ManagerID:  req.ManagerID,
		Location:   req.Location,
		Band:       req.Band,
	})
	if err != nil {
		h.fail(c, "create vendor", err)
		return
	}
	ok(c, http.StatusCreated, v)
}

// GetVendor handles GET /api/vendors/:id
func (h *Handlers) GetVendor(c *gin.Context) {
	v, err := h.services.Vendors.GetVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get vendor", err)
		return
	}
	ok(c, http.StatusOK, v)
}

// AssignManager handles PUT /api/vendors/:id/manager
func (h *Handlers) AssignManager(c *gin.Context) {
	var req AssignManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	v, err := h.services.Vendors.AssignManager(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.ManagerID))
	if err != nil {
		h.fail(c, "assign manager", err)
		return
	}
	ok(c, http.StatusOK, v)
}

// DeactivateVendor handles DELETE /api/vendors/:id
func (h *Handlers) DeactivateVendor(c *gin.Context) {
	if err := h.services.Vendors.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "deactivate vendor", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListHolidays handles GET /api/holidays?year=
func (h *Handlers) ListHolidays(c *gin.Context) {
	year := time.Now().Year()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "year must be a number")
			return
		}
		year = y
	}

	holidays, err := h.services.Holidays.ListYear(c.Request.Context(), year)
	if err != nil {
		h.fail(c, "list holidays", err)
		return
	}
	ok(c, http.StatusOK, holidays)
}

// AddHoliday handles POST /api/holidays
func (h *Handlers) AddHoliday(c *gin.Context) {
	var req HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "date and name are required")
		return
	}
	date, valid := parseDate(c, "date", req.Date)
	if !valid {
		return
	}

	holiday, err := h.services.Holidays.Add(c.Request.Context(), date, req.Name, req.Description)
	if err != nil {
		h.fail(c, "add holiday", err)
		return
	}
	ok(c, http.StatusCreated, holiday)
}

// RemoveHoliday handles DELETE /api/holidays/:date
func (h *Handlers) RemoveHoliday(c *gin.Context) {
	date, valid := parseDate(c, "date", c.Param("date"))
	if !valid {
		return
	}
	if err := h.services.Holidays.Remove(c.Request.Context(), date); err != nil {
		h.fail(c, "remove holiday", err)
		return
	}
	c.Status(http.StatusNoContent)
}
