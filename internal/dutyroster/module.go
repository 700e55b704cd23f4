// Package dutyroster provides the duty shift scheduling domain module.
package dutyroster

import (
	brokerrepo "plantao_backend/internal/brokers/repository"
	"plantao_backend/internal/dutyroster/handler"
	"plantao_backend/internal/dutyroster/repository"
	"plantao_backend/internal/dutyroster/service"
	"plantao_backend/internal/events"
	apphttp "plantao_backend/internal/http"
	"plantao_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the duty roster domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new duty roster module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, brokers *brokerrepo.Repository, bus events.Bus, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, brokers, bus)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "dutyroster"
}

// Service exposes the roster service to sibling modules, most notably the
// distribution engine's on-duty eligibility query.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes under /api/v1/shifts.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/shifts"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
