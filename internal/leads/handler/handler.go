// Package handler exposes the leads HTTP endpoints: the public intake
// endpoint plus the authenticated CRM surface.
package handler

import (
	"net/http"

	"plantao_backend/internal/leads/repository"
	"plantao_backend/internal/leads/service"
	"plantao_backend/internal/leads/transport"
	"plantao_backend/platform/httpkit"
	"plantao_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

// Handler handles HTTP requests for leads.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new leads handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the lead routes. The intake group carries its own
// authentication (API key + rate limit) configured by the router.
func (h *Handler) RegisterRoutes(rg, intake *gin.RouterGroup) {
	intake.POST("", h.Intake)

	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/stage", h.MoveStage)
	rg.POST("/:id/touch", h.Touch)
	rg.POST("/:id/assign", h.AssignManually)
}

func mustGetOrgID(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	orgID := identity.OrganizationID()
	if orgID == nil {
		httpkit.Error(c, http.StatusBadRequest, "organization ID is required", nil)
		return uuid.UUID{}, false
	}
	return *orgID, true
}

// Intake handles POST /api/v1/intake/leads
func (h *Handler) Intake(c *gin.Context) {
	var req transport.IntakeLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Intake(c.Request.Context(), req.OrganizationID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

// List handles GET /api/v1/leads?routingStatus=&brokerId=&boardId=
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	orgID, ok := mustGetOrgID(c, identity)
	if !ok {
		return
	}

	var filter repository.Filter
	if raw := c.Query("routingStatus"); raw != "" {
		filter.RoutingStatus = &raw
	}
	if raw := c.Query("brokerId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid brokerId filter", nil)
			return
		}
		filter.BrokerID = &parsed
	}
	if raw := c.Query("boardId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid boardId filter", nil)
			return
		}
		filter.BoardID = &parsed
	}

	result, err := h.svc.List(c.Request.Context(), orgID, filter)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetByID handles GET /api/v1/leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
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

// MoveStage handles POST /api/v1/leads/:id/stage
func (h *Handler) MoveStage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.MoveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
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

	result, err := h.svc.MoveStage(c.Request.Context(), id, orgID, identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Touch handles POST /api/v1/leads/:id/touch
func (h *Handler) Touch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
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

	if err := h.svc.Touch(c.Request.Context(), id, orgID); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

// AssignManually handles POST /api/v1/leads/:id/assign
func (h *Handler) AssignManually(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.ManualAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
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

	result, err := h.svc.AssignManually(c.Request.Context(), id, orgID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
