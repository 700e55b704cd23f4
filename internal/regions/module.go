// Package regions provides the region registry domain module: geographic
// routing rules and phone-to-region resolution.
package regions

import (
	"plantao_backend/internal/http"
	"plantao_backend/internal/regions/handler"
	"plantao_backend/internal/regions/repository"
	"plantao_backend/internal/regions/service"
	"plantao_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the regions domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new regions module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "regions"
}

// Service exposes the region service for lead intake resolution and seeding.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the region repository to the distribution engine.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes under /api/v1/regions.
func (m *Module) RegisterRoutes(ctx *http.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/regions"), ctx.Admin.Group("/regions"))
}

// Compile-time check that Module implements http.Module.
var _ http.Module = (*Module)(nil)
