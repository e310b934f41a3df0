// Package turret implements the stationary defensive unit: a two-state
// policy (ready / cooldown) that shoots the first in-range opposing probe
// it finds.
package turret

import (
	"github.com/ploupy/simcore/internal/delay"
	"github.com/ploupy/simcore/internal/geometry"
	"github.com/ploupy/simcore/internal/identity"
	"github.com/ploupy/simcore/internal/probe"
	"github.com/ploupy/simcore/internal/state"
	"github.com/ploupy/simcore/internal/tech"
)

// Policy is the turret's current mode.
type Policy uint8

const (
	PolicyReady Policy = iota
	PolicyCooldown
)

// DeathCause records why a turret died.
type DeathCause uint8

const (
	DeathConquered DeathCause = iota
	DeathScrapped
)

// Owner mirrors probe.Owner: the minimal view of a player a turret needs.
type Owner interface {
	ID() identity.ID
	HasTech(t tech.Tech) bool
}

// OpponentProbes exposes one opponent's probes for targeting, in
// iteration order, without granting the turret any other access to the
// opponent.
type OpponentProbes interface {
	Probes() []*probe.Probe
}

// State is the sparse diff record for a turret.
type State struct {
	ID     identity.ID
	Death  *DeathCause
	Coord  *geometry.Coord
	ShotID *identity.ID
}

// GetID implements state.Identifiable.
func (s State) GetID() identity.ID { return s.ID }

func blankState(id identity.ID) State {
	return State{ID: id}
}

func mergeState(dst *State, src State) {
	if src.Death != nil {
		dst.Death = src.Death
	}
	if src.Coord != nil {
		dst.Coord = src.Coord
	}
	if src.ShotID != nil {
		dst.ShotID = src.ShotID
	}
}

// MergeState folds src into dst, for callers (the owning player) that
// insert-or-merge turret diffs into their own nested list.
func MergeState(dst *State, src State) {
	mergeState(dst, src)
}

// ScrappedState builds a Scrapped death diff for the turret with the given
// id. Player.KillTurret does not use it; it returns Die(cause) instead.
func ScrappedState(id identity.ID) State {
	death := DeathScrapped
	return State{ID: id, Death: &death}
}

// Turret is the stationary defensive unit.
type Turret struct {
	id     identity.ID
	pos    geometry.Coord
	policy Policy

	scope                     float64
	damage                    int
	maintenanceCosts          float64
	scopeTechDelta            float64
	maintenanceCostsTechDelta float64

	fireGate *delay.Gate
	handle   *state.Handle[State]
}

// Config bundles the turret's configured base stats and tech deltas. The
// fire-delay tech bonus is applied externally (the owning player rewrites
// every turret's fire delay via SetFireDelay when TURRET_FIRE_DELAY is
// newly acquired) rather than recomputed every frame.
type Config struct {
	Scope                     float64
	Damage                    int
	FireDelay                 float64
	MaintenanceCosts          float64
	ScopeTechDelta            float64
	MaintenanceCostsTechDelta float64
}

// New creates a turret at pos with a fresh identity.
func New(pos geometry.Coord, cfg Config) *Turret {
	id := identity.New()
	return &Turret{
		id:                        id,
		pos:                       pos,
		policy:                    PolicyReady,
		scope:                     cfg.Scope,
		damage:                    cfg.Damage,
		maintenanceCosts:          cfg.MaintenanceCosts,
		scopeTechDelta:            cfg.ScopeTechDelta,
		maintenanceCostsTechDelta: cfg.MaintenanceCostsTechDelta,
		fireGate:                  delay.New(cfg.FireDelay),
		handle:                    state.NewHandle(func() State { return blankState(id) }, mergeState),
	}
}

// ID returns the turret's identifier.
func (t *Turret) ID() identity.ID { return t.id }

// Pos returns the turret's tile position.
func (t *Turret) Pos() geometry.Coord { return t.pos }

// SetFireDelay rewrites the fire delay threshold in place (used when
// TURRET_FIRE_DELAY is newly acquired).
func (t *Turret) SetFireDelay(delaySeconds float64) {
	t.fireGate.SetThreshold(delaySeconds)
}

func (t *Turret) effectiveScope(owner Owner) float64 {
	if owner.HasTech(tech.TurretScope) {
		return t.scope + t.scopeTechDelta
	}
	return t.scope
}

// Income returns the turret's contribution to player income (a negative
// maintenance cost, reduced if TURRET_MAINTENANCE_COSTS is owned).
func (t *Turret) Income(owner Owner) float64 {
	if owner.HasTech(tech.TurretMaintenanceCosts) {
		return -t.maintenanceCosts + t.maintenanceCostsTechDelta
	}
	return -t.maintenanceCosts
}

func (t *Turret) isInRange(pos geometry.Point, scope float64) bool {
	origin := t.pos.AsPoint()
	dx := origin.X - pos.X
	dy := origin.Y - pos.Y
	return dx*dx+dy*dy <= scope*scope
}

func (t *Turret) handleFireProbe(owner Owner, opponents []OpponentProbes) bool {
	scope := t.effectiveScope(owner)
	for _, opp := range opponents {
		for _, pr := range opp.Probes() {
			if t.isInRange(pr.Pos(), scope) {
				shotID := pr.ID()
				t.handle.Write().ShotID = &shotID
				pr.InflictDamage(t.damage)
				t.policy = PolicyCooldown
				return true
			}
		}
	}
	return false
}

// Run advances the turret by one frame, scanning for an in-range opponent
// probe while Ready, counting down the fire delay while in Cooldown.
func (t *Turret) Run(owner Owner, dt float64, opponents []OpponentProbes) (State, bool) {
	switch t.policy {
	case PolicyReady:
		t.handleFireProbe(owner, opponents)
	case PolicyCooldown:
		if t.fireGate.Advance(dt) {
			t.policy = PolicyReady
		}
	}
	return t.handle.Flush()
}

// Die synthesizes the turret's death diff.
func (t *Turret) Die(cause DeathCause) State {
	st := blankState(t.id)
	st.Death = &cause
	return st
}

// CompleteState returns a dense snapshot of the turret.
func (t *Turret) CompleteState() State {
	coord := t.pos
	return State{ID: t.id, Coord: &coord}
}
