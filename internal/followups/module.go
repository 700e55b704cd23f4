// Package followups provides the follow-up task domain module.
package followups

import (
	"plantao_backend/internal/followups/handler"
	"plantao_backend/internal/followups/repository"
	"plantao_backend/internal/followups/service"
	apphttp "plantao_backend/internal/http"
	"plantao_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the follow-ups domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new follow-ups module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "followups"
}

// Service exposes the follow-up service to the automation action executors.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes under /api/v1/followups.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/followups"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
