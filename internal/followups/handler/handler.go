// Package handler exposes the follow-up HTTP endpoints.
package handler

import (
	"net/http"

	"plantao_backend/internal/followups/service"
	"plantao_backend/internal/followups/transport"
	"plantao_backend/platform/httpkit"
	"plantao_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for follow-ups.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new follow-ups handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the follow-up routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.ListForLead)
	rg.POST("/:id/done", h.Complete)
}

func mustGetOrgID(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	orgID := identity.OrganizationID()
	if orgID == nil {
		httpkit.Error(c, http.StatusBadRequest, "organization ID is required", nil)
		return uuid.UUID{}, false
	}
	return *orgID, true
}

// Create handles POST /api/v1/followups
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateFollowUpRequest
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

// ListForLead handles GET /api/v1/followups?leadId=
func (h *Handler) ListForLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Query("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "leadId query parameter is required", nil)
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

	result, err := h.svc.ListForLead(c.Request.Context(), leadID, orgID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Complete handles POST /api/v1/followups/:id/done
func (h *Handler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid follow-up id", nil)
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

	if err := h.svc.Complete(c.Request.Context(), id, orgID); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}
