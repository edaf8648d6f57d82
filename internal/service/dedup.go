package service

import (
	"context"
	"fmt"

	"github.com/ticketlens/ticketlens/internal/core"
	"github.com/ticketlens/ticketlens/internal/logging"
)

// DefaultIDFloor is the first identifier handed out for a tenant with no
// committed records.
const DefaultIDFloor = 1001

// DedupGuard prevents re-submission of previously committed record
// identifiers for a tenant.
type DedupGuard struct {
	store  core.RecordStore
	floor  int
	logger *logging.Logger
}

// NewDedupGuard creates a dedup guard over the persistence collaborator.
// floor <=0 falls back to DefaultIDFloor.
func NewDedupGuard(store core.RecordStore, floor int, logger *logging.Logger) *DedupGuard {
	if floor <= 0 {
		floor = DefaultIDFloor
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DedupGuard{store: store, floor: floor, logger: logger}
}

// NextStartID returns one greater than the highest committed identifier
// for the tenant, or the configured floor when none exist.
func (g *DedupGuard) NextStartID(ctx context.Context, tenant string) (int, error) {
	highest, ok, err := g.store.HighestID(ctx, tenant)
	if err != nil {
		return 0, core.ErrStorage("querying highest id").WithCause(err).WithDetail("tenant", tenant)
	}
	if !ok {
		return g.floor, nil
	}
	return highest + 1, nil
}

// FilterNew drops candidates whose identifier is already committed for the
// tenant. All candidates being duplicates is fatal: it signals the
// generation contract was violated upstream (e.g. the model ignored the
// requested starting offset).
func (g *DedupGuard) FilterNew(ctx context.Context, tenant string, candidates []core.Record) ([]core.Record, error) {
	if len(candidates) == 0 {
		return nil, core.ErrValidation(core.CodeEmptyCandidates, "no candidate records to filter")
	}

	existing, err := g.store.QueryExistingIDs(ctx, tenant, core.RecordIDs(candidates))
	if err != nil {
		return nil, core.ErrStorage("querying existing ids").WithCause(err).WithDetail("tenant", tenant)
	}

	existingSet := make(map[int]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}

	fresh := make([]core.Record, 0, len(candidates))
	for _, c := range candidates {
		if existingSet[c.ID] {
			continue
		}
		fresh = append(fresh, c)
	}

	if len(fresh) == 0 {
		return nil, core.ErrGeneration(core.CodeAllDuplicates,
			fmt.Sprintf("all %d candidates already exist for tenant %s", len(candidates), tenant))
	}

	if dropped := len(candidates) - len(fresh); dropped > 0 {
		g.logger.Warn("dropped duplicate candidates",
			"tenant", tenant,
			"dropped", dropped,
			"kept", len(fresh),
		)
	}

	return fresh, nil
}
