// Package leads provides the lead intake and routing domain module.
package leads

import (
	"plantao_backend/internal/events"
	apphttp "plantao_backend/internal/http"
	"plantao_backend/internal/leads/handler"
	"plantao_backend/internal/leads/repository"
	"plantao_backend/internal/leads/service"
	"plantao_backend/platform/logger"
	"plantao_backend/platform/validator"
)

// Module represents the leads domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new leads module. The repository is injected rather
// than built here because the distribution engine shares it for its load
// counters and must be constructed first.
func NewModule(repo *repository.Repository, router service.Router, regions service.RegionStore, distributor service.Distributor, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	svc := service.New(repo, router, regions, distributor, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "leads"
}

// Service exposes the leads service to the automation action executors.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the leads repository to the automation sweep.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes: the authenticated CRM
// surface under /api/v1/leads and the public intake endpoint under
// /api/v1/intake/leads.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"), ctx.Intake.Group("/leads"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
