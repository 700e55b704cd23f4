// Package engine evaluates automation rules: synchronous dispatch of lead
// lifecycle events and the periodic sweep for time-based rules, with
// at-most-once-per-window firing and per-pair failure isolation.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"plantao_backend/internal/automation/domain"
	"plantao_backend/internal/events"
	leadrepo "plantao_backend/internal/leads/repository"
	"plantao_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RuleStore defines the rule and execution-record access the engine needs.
type RuleStore interface {
	ListActiveForBoard(ctx context.Context, boardID uuid.UUID, triggerType domain.TriggerType) ([]domain.Rule, error)
	ListActivePeriodic(ctx context.Context) ([]domain.Rule, error)
	InsertExecution(ctx context.Context, ruleID, leadID uuid.UUID, windowID string) (bool, error)
}

// LeadSource supplies lead context for rule evaluation and execution.
type LeadSource interface {
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (*leadrepo.Lead, error)
	ListOpenByBoard(ctx context.Context, boardID uuid.UUID) ([]leadrepo.Lead, error)
}

// CRM is the slice of the leads module the MOVE_STAGE and UPDATE_LEAD
// actions need.
type CRM interface {
	MoveLeadStage(ctx context.Context, leadID, organizationID, stageID uuid.UUID) error
	PatchLead(ctx context.Context, leadID, organizationID uuid.UUID, patch leadrepo.FieldPatch) error
}

// EmailSender delivers templated email, best-effort.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MessageSender delivers a WhatsApp message, best-effort.
type MessageSender interface {
	Send(ctx context.Context, phone, message string) error
}

// FollowUps creates follow-up tasks for the CREATE_FOLLOWUP action.
type FollowUps interface {
	CreateFromAutomation(ctx context.Context, organizationID, leadID uuid.UUID, brokerID *uuid.UUID, title string, due time.Duration) error
}

const defaultSweepWorkers = 8

// Engine evaluates automation rules and runs their actions.
type Engine struct {
	rules        RuleStore
	leads        LeadSource
	crm          CRM
	email        EmailSender
	whatsapp     MessageSender
	followups    FollowUps
	log          *logger.Logger
	sweepWorkers int
}

// New creates an automation engine.
func New(rules RuleStore, leads LeadSource, crm CRM, email EmailSender, whatsapp MessageSender, followups FollowUps, log *logger.Logger) *Engine {
	return &Engine{
		rules:        rules,
		leads:        leads,
		crm:          crm,
		email:        email,
		whatsapp:     whatsapp,
		followups:    followups,
		log:          log,
		sweepWorkers: defaultSweepWorkers,
	}
}

// Subscribe registers the engine's event-driven triggers on the bus.
func (e *Engine) Subscribe(bus events.Bus) {
	bus.Subscribe(events.EventLeadCreated, events.HandlerFunc(e.HandleEvent))
	bus.Subscribe(events.EventStageChanged, events.HandlerFunc(e.HandleEvent))
}

// HandleEvent dispatches a lead lifecycle event against the matching rules
// of its board. Action failures are logged per rule and never abort the
// dispatch or propagate to the publisher.
func (e *Engine) HandleEvent(ctx context.Context, event events.Event) error {
	switch evt := event.(type) {
	case events.LeadCreated:
		return e.dispatchLeadCreated(ctx, evt)
	case events.StageChanged:
		return e.dispatchStageChanged(ctx, evt)
	default:
		return nil
	}
}

func (e *Engine) dispatchLeadCreated(ctx context.Context, evt events.LeadCreated) error {
	rules, err := e.rules.ListActiveForBoard(ctx, evt.BoardID, domain.TriggerLeadCreated)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	lead, err := e.leads.GetByID(ctx, evt.LeadID, evt.OrganizationID)
	if err != nil {
		return err
	}

	for i := range rules {
		rule := &rules[i]
		if !rule.MatchesLeadCreated(evt.AssignedBrokerID != nil) {
			continue
		}
		if err := e.executeSafely(ctx, rule, lead); err != nil {
			e.log.ActionFailed(rule.ID.String(), lead.ID.String(), err)
		}
	}
	return nil
}

func (e *Engine) dispatchStageChanged(ctx context.Context, evt events.StageChanged) error {
	rules, err := e.rules.ListActiveForBoard(ctx, evt.BoardID, domain.TriggerStageChanged)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	lead, err := e.leads.GetByID(ctx, evt.LeadID, evt.OrganizationID)
	if err != nil {
		return err
	}

	for i := range rules {
		rule := &rules[i]
		if !rule.MatchesStageChange(evt.FromStageID, evt.ToStageID) {
			continue
		}
		if err := e.executeSafely(ctx, rule, lead); err != nil {
			e.log.ActionFailed(rule.ID.String(), lead.ID.String(), err)
		}
	}
	return nil
}

// Sweep evaluates every active periodic rule against the open leads of its
// board. A (rule, lead) pair fires at most once per window: the execution
// record is inserted before the action runs, and a losing racer skips. Pairs
// run on a bounded worker pool; failures are isolated per pair and the sweep
// itself never returns them.
func (e *Engine) Sweep(ctx context.Context, windowID string, now time.Time) error {
	rules, err := e.rules.ListActivePeriodic(ctx)
	if err != nil {
		return err
	}

	var evaluated, fired, failed atomic.Int64

	var group errgroup.Group
	group.SetLimit(e.sweepWorkers)

	for i := range rules {
		rule := rules[i]
		leads, err := e.leads.ListOpenByBoard(ctx, rule.BoardID)
		if err != nil {
			e.log.Error("sweep could not load leads", "rule_id", rule.ID.String(), "error", err)
			continue
		}

		for j := range leads {
			lead := leads[j]
			group.Go(func() error {
				evaluated.Add(1)
				if !rule.DueAt(now, lead.CreatedAt, lead.LastInteractionAt) {
					return nil
				}

				inserted, err := e.rules.InsertExecution(ctx, rule.ID, lead.ID, windowID)
				if err != nil {
					failed.Add(1)
					e.log.ActionFailed(rule.ID.String(), lead.ID.String(), err)
					return nil
				}
				if !inserted {
					// Already fired for this window.
					return nil
				}

				if err := e.executeSafely(ctx, &rule, &lead); err != nil {
					failed.Add(1)
					e.log.ActionFailed(rule.ID.String(), lead.ID.String(), err)
					return nil
				}
				fired.Add(1)
				return nil
			})
		}
	}

	_ = group.Wait()
	e.log.SweepCompleted(windowID, int(evaluated.Load()), int(fired.Load()), int(failed.Load()))
	return nil
}

// executeSafely runs a rule's action, converting panics into errors so one
// misbehaving executor cannot take down a sweep or a dispatch.
func (e *Engine) executeSafely(ctx context.Context, rule *domain.Rule, lead *leadrepo.Lead) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return e.execute(ctx, rule, lead)
}

func (e *Engine) execute(ctx context.Context, rule *domain.Rule, lead *leadrepo.Lead) error {
	switch rule.ActionType {
	case domain.ActionMoveStage:
		return e.crm.MoveLeadStage(ctx, lead.ID, lead.OrganizationID, rule.Action.MoveStage.TargetStageID)

	case domain.ActionSendEmail:
		if lead.Email == nil || *lead.Email == "" {
			return fmt.Errorf("lead %s has no email address", lead.ID)
		}
		cfg := rule.Action.SendEmail
		return e.email.Send(ctx, *lead.Email, renderTemplate(cfg.Subject, lead), renderTemplate(cfg.Template, lead))

	case domain.ActionSendWhatsApp:
		return e.whatsapp.Send(ctx, lead.Phone, renderTemplate(rule.Action.SendWhatsApp.Message, lead))

	case domain.ActionCreateFollowUp:
		cfg := rule.Action.CreateFollowUp
		return e.followups.CreateFromAutomation(ctx, lead.OrganizationID, lead.ID, lead.AssignedBrokerID, cfg.Title, cfg.Due())

	case domain.ActionUpdateLead:
		cfg := rule.Action.UpdateLead
		return e.crm.PatchLead(ctx, lead.ID, lead.OrganizationID, leadrepo.FieldPatch{
			Temperature: cfg.Temperature,
			Status:      cfg.Status,
			Tags:        cfg.Tags,
		})

	default:
		return fmt.Errorf("unknown action type %q", rule.ActionType)
	}
}

// renderTemplate substitutes the small set of lead placeholders supported in
// notification texts.
func renderTemplate(text string, lead *leadrepo.Lead) string {
	replacer := strings.NewReplacer(
		"{{name}}", lead.Name,
		"{{phone}}", lead.Phone,
	)
	return replacer.Replace(text)
}
