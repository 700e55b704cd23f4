// Package automation provides the rule engine domain module: rule
// administration, event-driven dispatch and the periodic sweep.
package automation

import (
	"context"

	"plantao_backend/internal/automation/engine"
	"plantao_backend/internal/automation/handler"
	"plantao_backend/internal/automation/repository"
	"plantao_backend/internal/automation/service"
	"plantao_backend/internal/events"
	apphttp "plantao_backend/internal/http"
	leadrepo "plantao_backend/internal/leads/repository"
	leadsvc "plantao_backend/internal/leads/service"
	leadtransport "plantao_backend/internal/leads/transport"
	"plantao_backend/platform/logger"
	"plantao_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the automation domain module.
type Module struct {
	handler *handler.Handler
	engine  *engine.Engine
}

// NewModule creates a new automation module and subscribes its engine to the
// lead lifecycle events.
func NewModule(
	pool *pgxpool.Pool,
	leads *leadsvc.Service,
	leadsRepo *leadrepo.Repository,
	email engine.EmailSender,
	whatsapp engine.MessageSender,
	followups engine.FollowUps,
	bus events.Bus,
	log *logger.Logger,
	val *validator.Validator,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	crm := &crmAdapter{leads: leads, repo: leadsRepo}
	eng := engine.New(repo, leadsRepo, crm, email, whatsapp, followups, log)
	eng.Subscribe(bus)

	return &Module{
		handler: h,
		engine:  eng,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "automation"
}

// Engine exposes the rule engine to the sweep worker.
func (m *Module) Engine() *engine.Engine {
	return m.engine
}

// RegisterRoutes registers the module's routes under /api/v1/automation/rules.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(
		ctx.Protected.Group("/automation/rules"),
		ctx.Admin.Group("/automation/rules"),
	)
}

// crmAdapter narrows the leads module to the two operations automation
// actions perform. Stage moves made by a rule are attributed to the system
// actor.
type crmAdapter struct {
	leads *leadsvc.Service
	repo  *leadrepo.Repository
}

func (a *crmAdapter) MoveLeadStage(ctx context.Context, leadID, organizationID, stageID uuid.UUID) error {
	_, err := a.leads.MoveStage(ctx, leadID, organizationID, uuid.Nil, leadtransport.MoveStageRequest{StageID: stageID})
	return err
}

func (a *crmAdapter) PatchLead(ctx context.Context, leadID, organizationID uuid.UUID, patch leadrepo.FieldPatch) error {
	return a.repo.UpdateFields(ctx, leadID, organizationID, patch)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
