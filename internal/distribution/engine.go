// Package distribution selects the broker that receives an incoming lead,
// applying the owning region's distribution strategy over the pool of
// eligible brokers.
package distribution

import (
	"context"
	"errors"
	"sort"
	"time"

	regionrepo "plantao_backend/internal/regions/repository"
	rosterrepo "plantao_backend/internal/dutyroster/repository"

	"github.com/google/uuid"
)

// ErrNoEligibleBroker signals that no region member can receive the lead
// right now. Non-fatal: the lead stays unassigned and is flagged for manual
// routing.
var ErrNoEligibleBroker = errors.New("no eligible broker for region")

// ErrManualAssignmentRequired signals that the region is configured for
// manual routing and the engine made no selection.
var ErrManualAssignmentRequired = errors.New("region requires manual assignment")

// Roster is the slice of the duty roster module the engine consults for
// on-duty eligibility and shift priorities.
type Roster interface {
	CurrentOnDuty(ctx context.Context, organizationID uuid.UUID, now time.Time) ([]rosterrepo.OnDutyBroker, error)
}

// Presence reports broker availability. Inactive brokers are absent from the
// returned map and therefore never eligible.
type Presence interface {
	AvailabilityByIDs(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// Counters supplies the per-broker load figures used as strategy tiebreaks.
type Counters interface {
	AssignedTodayCounts(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]int, error)
	OpenLeadCounts(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]int, error)
}

// Assignments persists the selection. AssignRoundRobin must advance the
// region cursor and write the lead assignment in one atomic operation so two
// concurrent assignments never pick the same "next" broker.
type Assignments interface {
	AssignRoundRobin(ctx context.Context, region *regionrepo.Region, leadID uuid.UUID, eligible map[uuid.UUID]bool, at time.Time) (uuid.UUID, error)
	Assign(ctx context.Context, leadID, organizationID, brokerID uuid.UUID, at time.Time) error
}

const availabilityOffline = "OFFLINE"
const availabilityAvailable = "AVAILABLE"

// Engine applies a region's distribution strategy.
type Engine struct {
	roster      Roster
	presence    Presence
	counters    Counters
	assignments Assignments
}

// New creates a distribution engine.
func New(roster Roster, presence Presence, counters Counters, assignments Assignments) *Engine {
	return &Engine{roster: roster, presence: presence, counters: counters, assignments: assignments}
}

// Assign picks a broker for the lead per the region's strategy and persists
// the assignment. Returns the selected broker, or ErrNoEligibleBroker /
// ErrManualAssignmentRequired when no selection was made.
func (e *Engine) Assign(ctx context.Context, leadID uuid.UUID, region *regionrepo.Region, now time.Time) (uuid.UUID, error) {
	if region.Strategy == regionrepo.StrategyManual {
		return uuid.Nil, ErrManualAssignmentRequired
	}
	if len(region.MemberBrokerIDs) == 0 {
		return uuid.Nil, ErrNoEligibleBroker
	}

	availability, err := e.presence.AvailabilityByIDs(ctx, region.OrganizationID, region.MemberBrokerIDs)
	if err != nil {
		return uuid.Nil, err
	}

	onDuty, err := e.roster.CurrentOnDuty(ctx, region.OrganizationID, now)
	if err != nil {
		return uuid.Nil, err
	}
	shiftPriority := make(map[uuid.UUID]int, len(onDuty))
	for _, b := range onDuty {
		if b.Priority > shiftPriority[b.BrokerID] {
			shiftPriority[b.BrokerID] = b.Priority
		}
	}

	pool := make(map[uuid.UUID]bool, len(region.MemberBrokerIDs))
	for _, id := range region.MemberBrokerIDs {
		status, known := availability[id]
		if !known || status == availabilityOffline {
			continue
		}
		if region.RequiresDuty {
			if _, covered := shiftPriority[id]; !covered {
				continue
			}
		}
		pool[id] = true
	}
	if len(pool) == 0 {
		return uuid.Nil, ErrNoEligibleBroker
	}

	switch region.Strategy {
	case regionrepo.StrategyRoundRobin:
		return e.assignments.AssignRoundRobin(ctx, region, leadID, pool, now)
	case regionrepo.StrategyPriority:
		return e.assignRanked(ctx, leadID, region, pool, now, func(id uuid.UUID, load loads) rank {
			return rank{primary: -shiftPriority[id], secondary: load.assignedToday[id]}
		})
	case regionrepo.StrategyAvailability:
		for id := range pool {
			if availability[id] != availabilityAvailable {
				delete(pool, id)
			}
		}
		if len(pool) == 0 {
			return uuid.Nil, ErrNoEligibleBroker
		}
		return e.assignRanked(ctx, leadID, region, pool, now, func(id uuid.UUID, load loads) rank {
			return rank{primary: load.open[id], secondary: load.assignedToday[id]}
		})
	default:
		return uuid.Nil, ErrNoEligibleBroker
	}
}

type loads struct {
	assignedToday map[uuid.UUID]int
	open          map[uuid.UUID]int
}

// rank orders candidates ascending: lower primary wins, then lower
// secondary, then broker id for determinism.
type rank struct {
	primary   int
	secondary int
}

func (e *Engine) assignRanked(ctx context.Context, leadID uuid.UUID, region *regionrepo.Region, pool map[uuid.UUID]bool, now time.Time, rankOf func(uuid.UUID, loads) rank) (uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(pool))
	for id := range pool {
		ids = append(ids, id)
	}

	assignedToday, err := e.counters.AssignedTodayCounts(ctx, region.OrganizationID, ids)
	if err != nil {
		return uuid.Nil, err
	}
	open, err := e.counters.OpenLeadCounts(ctx, region.OrganizationID, ids)
	if err != nil {
		return uuid.Nil, err
	}
	load := loads{assignedToday: assignedToday, open: open}

	sort.Slice(ids, func(i, j int) bool {
		ri, rj := rankOf(ids[i], load), rankOf(ids[j], load)
		if ri.primary != rj.primary {
			return ri.primary < rj.primary
		}
		if ri.secondary != rj.secondary {
			return ri.secondary < rj.secondary
		}
		return ids[i].String() < ids[j].String()
	})

	selected := ids[0]
	if err := e.assignments.Assign(ctx, leadID, region.OrganizationID, selected, now); err != nil {
		return uuid.Nil, err
	}
	return selected, nil
}
