// Package handler exposes the duty roster HTTP endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	"plantao_backend/internal/dutyroster/service"
	"plantao_backend/internal/dutyroster/transport"
	"plantao_backend/platform/httpkit"
	"plantao_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidShiftID   = "invalid shift id"
)

// Handler handles HTTP requests for duty shifts.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new duty roster handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the duty roster routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.GET("", h.List)
	rg.GET("/on-duty", h.OnDuty)
	rg.POST("/:id/activate", h.Activate)
	rg.POST("/:id/finalize", h.Finalize)
	rg.POST("/:id/cancel", h.Cancel)
}

func actorFrom(identity httpkit.Identity) service.Actor {
	return service.Actor{ID: identity.UserID(), IsAdmin: identity.HasRole("admin")}
}

func mustGetOrgID(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	orgID := identity.OrganizationID()
	if orgID == nil {
		httpkit.Error(c, http.StatusBadRequest, "organization ID is required", nil)
		return uuid.UUID{}, false
	}
	return *orgID, true
}

// Create handles POST /api/v1/shifts
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateShiftRequest
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

	result, err := h.svc.CreateShift(c.Request.Context(), orgID, actorFrom(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

// Update handles PUT /api/v1/shifts/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidShiftID, nil)
		return
	}

	var req transport.UpdateShiftRequest
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

	result, err := h.svc.UpdateShift(c.Request.Context(), id, orgID, actorFrom(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// List handles GET /api/v1/shifts?brokerId=
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	orgID, ok := mustGetOrgID(c, identity)
	if !ok {
		return
	}

	var brokerID *uuid.UUID
	if raw := c.Query("brokerId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid brokerId filter", nil)
			return
		}
		brokerID = &parsed
	}

	result, err := h.svc.List(c.Request.Context(), orgID, brokerID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// OnDuty handles GET /api/v1/shifts/on-duty
func (h *Handler) OnDuty(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	orgID, ok := mustGetOrgID(c, identity)
	if !ok {
		return
	}

	brokers, err := h.svc.CurrentOnDuty(c.Request.Context(), orgID, time.Now())
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.OnDutyResponse{BrokerIDs: make([]uuid.UUID, len(brokers))}
	for i, b := range brokers {
		resp.BrokerIDs[i] = b.BrokerID
	}
	httpkit.OK(c, resp)
}

// Activate handles POST /api/v1/shifts/:id/activate
func (h *Handler) Activate(c *gin.Context) {
	h.transition(c, h.svc.Activate)
}

// Finalize handles POST /api/v1/shifts/:id/finalize
func (h *Handler) Finalize(c *gin.Context) {
	h.transition(c, h.svc.Finalize)
}

// Cancel handles POST /api/v1/shifts/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel)
}

type transitionFunc func(ctx context.Context, id, organizationID uuid.UUID, actor service.Actor) (transport.ShiftResponse, error)

func (h *Handler) transition(c *gin.Context, fn transitionFunc) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidShiftID, nil)
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

	result, err := fn(c.Request.Context(), id, orgID, actorFrom(identity))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
