package schedule

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/invalidation"
	"github.com/warp/rota-engine/logger"
	"github.com/warp/rota-engine/metrics"
)

// =============================================================================
// ROSTER - Agent edits that interact with scheduling
// =============================================================================

// Roster registers and edits agents. Edits to the fields the rotation reads
// (group, entry date) invalidate the agent's memoized theoretical rows in
// the same transaction.
type Roster struct {
	store       generic.TxStore
	invalidator *invalidation.Engine
	log         *zap.Logger
}

func NewRoster(store generic.TxStore, inv *invalidation.Engine, log *zap.Logger) *Roster {
	return &Roster{store: store, invalidator: inv, log: logger.OrNop(log)}
}

// RegisterAgent creates an agent, or replaces an existing one with the same
// code. Replacing with a different group or entry date invalidates.
func (r *Roster) RegisterAgent(ctx context.Context, a generic.Agent) (generic.Agent, error) {
	a.Code = generic.NormalizeAgentCode(string(a.Code))
	a.LastName = strings.TrimSpace(a.LastName)
	a.FirstName = strings.TrimSpace(a.FirstName)
	if err := a.Validate(); err != nil {
		return generic.Agent{}, err
	}

	invalidated := 0
	err := r.store.WithTx(ctx, func(tx generic.Store) error {
		existing, err := tx.GetAgent(ctx, a.Code)
		switch {
		case generic.IsNotFound(err):
		case err != nil:
			return err
		case existing.Group != a.Group || !existing.EntryDate.Equal(a.EntryDate):
			if invalidated, err = r.invalidator.InvalidateAgentTheoretical(ctx, tx, a.Code, metrics.ReasonAgentEdited); err != nil {
				return err
			}
		}
		return tx.SaveAgent(ctx, a)
	})
	if err != nil {
		return generic.Agent{}, err
	}
	r.invalidator.Record(metrics.ReasonAgentEdited, invalidated)

	r.log.Info("agent registered",
		zap.String("agent", string(a.Code)), zap.String("group", string(a.Group)),
		zap.String("entry_date", a.EntryDate.String()))
	return a, nil
}

// AgentPatch lists the fields UpdateAgent may change; nil means unchanged.
type AgentPatch struct {
	LastName  *string
	FirstName *string
	Group     *generic.Group
	EntryDate *generic.TimePoint
}

// AgentUpdate is the result of UpdateAgent.
type AgentUpdate struct {
	Agent       generic.Agent
	Invalidated int
}

// UpdateAgent applies patch. A changed group or entry date deletes the
// agent's THEORETICAL rows so they are recomputed under the new facts.
func (r *Roster) UpdateAgent(ctx context.Context, code generic.AgentCode, patch AgentPatch) (AgentUpdate, error) {
	var res AgentUpdate
	err := r.store.WithTx(ctx, func(tx generic.Store) error {
		a, err := tx.GetAgent(ctx, code)
		if err != nil {
			return err
		}

		rotationChanged := false
		if patch.LastName != nil {
			a.LastName = strings.TrimSpace(*patch.LastName)
		}
		if patch.FirstName != nil {
			a.FirstName = strings.TrimSpace(*patch.FirstName)
		}
		if patch.Group != nil && *patch.Group != a.Group {
			a.Group = *patch.Group
			rotationChanged = true
		}
		if patch.EntryDate != nil && !patch.EntryDate.Equal(a.EntryDate) {
			a.EntryDate = *patch.EntryDate
			rotationChanged = true
		}
		if err := a.Validate(); err != nil {
			return err
		}

		if rotationChanged {
			if res.Invalidated, err = r.invalidator.InvalidateAgentTheoretical(ctx, tx, code, metrics.ReasonAgentEdited); err != nil {
				return err
			}
		}
		res.Agent = a
		return tx.SaveAgent(ctx, a)
	})
	if err != nil {
		r.log.Warn("agent update failed", zap.String("agent", string(code)), zap.Error(err))
		return AgentUpdate{}, err
	}
	r.invalidator.Record(metrics.ReasonAgentEdited, res.Invalidated)

	r.log.Info("agent updated",
		zap.String("agent", string(code)), zap.Int("invalidated", res.Invalidated))
	return res, nil
}

// ExitAgent records exitDate (today when zero) on an active agent and
// deletes every schedule row dated after it. It reports false when the
// agent had already exited.
func (r *Roster) ExitAgent(ctx context.Context, code generic.AgentCode, exitDate generic.TimePoint) (bool, error) {
	const op = "exit agent"

	if exitDate.IsZero() {
		exitDate = generic.Today()
	}

	var (
		changed bool
		deleted int
	)
	err := r.store.WithTx(ctx, func(tx generic.Store) error {
		a, err := tx.GetAgent(ctx, code)
		if err != nil {
			return err
		}
		if !a.IsActive() {
			return nil
		}
		if exitDate.Before(a.EntryDate) {
			return generic.InvalidArgument(op, "exit date "+exitDate.String()+" is before entry date "+a.EntryDate.String())
		}
		a.ExitDate = exitDate
		if err := tx.SaveAgent(ctx, a); err != nil {
			return err
		}
		deleted, err = tx.DeleteEntries(ctx, generic.EntryFilter{AgentCode: code, From: exitDate.AddDays(1)})
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		r.log.Info("agent exited",
			zap.String("agent", string(code)), zap.String("exit_date", exitDate.String()), zap.Int("rows_deleted", deleted))
	}
	return changed, nil
}

// GetAgent returns one agent, active or not.
func (r *Roster) GetAgent(ctx context.Context, code generic.AgentCode) (generic.Agent, error) {
	return r.store.GetAgent(ctx, code)
}

// ListActiveAgents returns active agents ordered by group then code.
func (r *Roster) ListActiveAgents(ctx context.Context) ([]generic.Agent, error) {
	return r.store.ListActiveAgents(ctx)
}

// ListActiveAgentsByGroup returns one group's active agents ordered by code.
func (r *Roster) ListActiveAgentsByGroup(ctx context.Context, g generic.Group) ([]generic.Agent, error) {
	if !g.IsValid() {
		return nil, generic.InvalidArgument("list agents", "invalid group "+string(g))
	}
	return r.store.ListActiveAgentsByGroup(ctx, g)
}
