// Package brokers provides the broker management domain module.
package brokers

import (
	"plantao_backend/internal/brokers/handler"
	"plantao_backend/internal/brokers/repository"
	"plantao_backend/internal/brokers/service"
	apphttp "plantao_backend/internal/http"
	"plantao_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the brokers domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new brokers module with all dependencies wired.
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
	return "brokers"
}

// Repository exposes the broker repository to sibling modules
// (duty roster activation, distribution eligibility).
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes under /api/v1/brokers.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/brokers"), ctx.Admin.Group("/brokers"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
