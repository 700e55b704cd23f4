// Package handler exposes the brokers HTTP endpoints.
package handler

import (
	"net/http"

	"plantao_backend/internal/brokers/service"
	"plantao_backend/internal/brokers/transport"
	"plantao_backend/platform/httpkit"
	"plantao_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for brokers.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new brokers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// mustGetOrgID extracts the organization ID from identity.
// Returns zero UUID and false if it is not present.
func mustGetOrgID(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	orgID := identity.OrganizationID()
	if orgID == nil {
		httpkit.Error(c, http.StatusBadRequest, "organization ID is required", nil)
		return uuid.UUID{}, false
	}
	return *orgID, true
}

// RegisterRoutes registers the broker routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/availability", h.SetAvailability)

	admin.POST("", h.Create)
	admin.DELETE("/:id", h.Deactivate)
}

// Create handles POST /api/v1/admin/brokers
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateBrokerRequest
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

	result, err := h.svc.Create(c.Request.Context(), orgID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

// List handles GET /api/v1/brokers
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

// GetByID handles GET /api/v1/brokers/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid broker id", nil)
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

// SetAvailability handles PATCH /api/v1/brokers/:id/availability
func (h *Handler) SetAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid broker id", nil)
		return
	}

	var req transport.SetAvailabilityRequest
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

	// Brokers may update their own presence; anyone else needs admin.
	if identity.UserID() != id && !identity.HasRole("admin") {
		httpkit.Error(c, http.StatusForbidden, "forbidden", nil)
		return
	}

	if err := h.svc.SetAvailability(c.Request.Context(), id, orgID, req); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

// Deactivate handles DELETE /api/v1/admin/brokers/:id
func (h *Handler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid broker id", nil)
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

	if err := h.svc.Deactivate(c.Request.Context(), id, orgID); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}
