// Package handler exposes the automation rule admin endpoints.
package handler

import (
	"net/http"

	"plantao_backend/internal/automation/service"
	"plantao_backend/internal/automation/transport"
	"plantao_backend/platform/httpkit"
	"plantao_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for automation rules.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new automation handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the automation routes. Rule management is
// admin-only; listing is available to any authenticated user.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)

	admin.POST("", h.Create)
	admin.PATCH("/:id", h.SetActive)
}

func mustGetOrgID(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	orgID := identity.OrganizationID()
	if orgID == nil {
		httpkit.Error(c, http.StatusBadRequest, "organization ID is required", nil)
		return uuid.UUID{}, false
	}
	return *orgID, true
}

// Create handles POST /api/v1/admin/automation/rules
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	orgID, ok := mustGetOrgID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), orgID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

// List handles GET /api/v1/automation/rules
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	orgID, ok := mustGetOrgID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), orgID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetByID handles GET /api/v1/automation/rules/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid rule id", nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	orgID, ok := mustGetOrgID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id, orgID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// SetActive handles PATCH /api/v1/admin/automation/rules/:id
func (h *Handler) SetActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid rule id", nil)
		return
	}

	var req transport.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	orgID, ok := mustGetOrgID(c, identity)
	if !ok {
		return
	}

	if err := h.svc.SetActive(c.Request.Context(), id, orgID, *req.Active); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}
