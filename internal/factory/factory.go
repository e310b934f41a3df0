// Package factory implements the stationary production unit: an
// expand/produce/wait policy that concentrically claims territory before
// spawning probes, and owns the probe list.
package factory

import (
	"github.com/ploupy/simcore/internal/delay"
	"github.com/ploupy/simcore/internal/geometry"
	"github.com/ploupy/simcore/internal/identity"
	"github.com/ploupy/simcore/internal/mapgrid"
	"github.com/ploupy/simcore/internal/probe"
	"github.com/ploupy/simcore/internal/state"
	"github.com/ploupy/simcore/internal/tech"
)

const expandGateSeconds = 0.5
const expandClaimIntensity = 2

// Policy is the factory's current phase.
type Policy uint8

const (
	PolicyExpand Policy = iota
	PolicyProduce
	PolicyWait
)

// DeathCause records why a factory died.
type DeathCause uint8

const (
	DeathConquered DeathCause = iota
	DeathScrapped
)

// Owner is the minimal player view a factory needs: identity, owned tech,
// and the positions of all the player's factories (passed through
// unchanged to each owned probe's farm-target fallback search). Structurally
// identical to probe.Owner, so a Player satisfying this also satisfies
// that, with no adapter needed.
type Owner interface {
	ID() identity.ID
	HasTech(t tech.Tech) bool
	FactoryPositions() []geometry.Coord
}

// State is the sparse diff record for a factory.
type State struct {
	ID     identity.ID
	Death  *DeathCause
	Coord  *geometry.Coord
	Probes []probe.State
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
	for _, ps := range src.Probes {
		if ps.ID == nil {
			dst.Probes = append(dst.Probes, ps)
			continue
		}
		dst.Probes = state.InsertOrMerge(dst.Probes, ps, probe.MergeState)
	}
}

// MergeState folds src into dst, for callers (the owning player) that
// insert-or-merge factory diffs into their own nested list.
func MergeState(dst *State, src State) {
	mergeState(dst, src)
}

// Config bundles the factory's configured base stats and tech deltas. Probe
// construction parameters (speed, hp, claim delay) live on the owning
// player's Config instead: the factory only ever emits a placeholder
// just-created probe state, and the player instantiates the real
// probe.Probe when it confirms affordability.
type Config struct {
	ExpansionSize     int
	ProduceDelay      float64
	MaxProbe          int
	MaxProbeTechDelta int
	MaintenanceCosts  float64
}

// Factory is the stationary production unit.
type Factory struct {
	id     identity.ID
	pos    geometry.Coord
	policy Policy

	expandStep int
	probes     []*probe.Probe

	cfg Config

	expandGate  *delay.Gate
	produceGate *delay.Gate
	handle      *state.Handle[State]

	lastDt float64
}

// New creates a factory at pos with a fresh identity, starting in the
// Expand phase.
func New(pos geometry.Coord, cfg Config) *Factory {
	id := identity.New()
	return &Factory{
		id:          id,
		pos:         pos,
		policy:      PolicyExpand,
		cfg:         cfg,
		expandGate:  delay.New(expandGateSeconds),
		produceGate: delay.New(cfg.ProduceDelay),
		handle:      state.NewHandle(func() State { return blankState(id) }, mergeState),
	}
}

// ID returns the factory's identifier.
func (f *Factory) ID() identity.ID { return f.id }

// Pos returns the factory's tile position.
func (f *Factory) Pos() geometry.Coord { return f.pos }

// Probes returns the factory's owned probes, for read or in-place
// mutation by the owning player's turret-targeting pass.
func (f *Factory) Probes() []*probe.Probe { return f.probes }

// ProbeCount returns the number of live probes owned by this factory.
func (f *Factory) ProbeCount() int { return len(f.probes) }

// AttachProbe adds a newly-confirmed probe to the factory's list.
func (f *Factory) AttachProbe(p *probe.Probe) {
	f.probes = append(f.probes, p)
}

// SetProduceDelay rewrites the produce delay threshold in place (used when
// FACTORY_BUILD_DELAY is newly acquired).
func (f *Factory) SetProduceDelay(delaySeconds float64) {
	f.produceGate.SetThreshold(delaySeconds)
}

func (f *Factory) effectiveMaxProbe(owner Owner) int {
	if owner.HasTech(tech.FactoryMaxProbe) {
		return f.cfg.MaxProbe + f.cfg.MaxProbeTechDelta
	}
	return f.cfg.MaxProbe
}

// Income returns the factory's contribution to player income: maintenance
// cost for the building plus each owned probe's maintenance cost.
func (f *Factory) Income(probeMaintenanceCosts float64) float64 {
	return -float64(len(f.probes))*probeMaintenanceCosts - f.cfg.MaintenanceCosts
}

func (f *Factory) runExpand(owner Owner, m *mapgrid.Map) {
	if !f.expandGate.Advance(f.lastDt) {
		return
	}
	f.expandStep++
	for _, c := range geometry.Square(f.pos, f.expandStep) {
		m.Claim(owner.ID(), c, expandClaimIntensity)
	}
	if f.expandStep >= f.cfg.ExpansionSize+1 {
		f.expandStep = 0
		f.policy = PolicyProduce
	}
}

func (f *Factory) runProduce(owner Owner) {
	if len(f.probes) >= f.effectiveMaxProbe(owner) {
		f.policy = PolicyWait
		return
	}
	if f.produceGate.Advance(f.lastDt) {
		pos := f.pos.AsPoint()
		policy := probe.PolicyFarm
		ps := probe.State{Pos: &pos, Policy: &policy}
		w := f.handle.Write()
		w.Probes = append(w.Probes, ps)
	}
}

func (f *Factory) runWait(owner Owner) {
	if len(f.probes) < f.effectiveMaxProbe(owner) {
		f.policy = PolicyProduce
	}
}

// Run advances the factory by one frame: expand/produce/wait, then runs
// every owned probe and removes the dead ones in reverse-index order.
func (f *Factory) Run(owner Owner, params probe.RunParams) (State, bool) {
	f.lastDt = params.Dt

	switch f.policy {
	case PolicyExpand:
		f.runExpand(owner, params.Map)
	case PolicyProduce:
		f.runProduce(owner)
	case PolicyWait:
		f.runWait(owner)
	}

	var deadIdx []int
	for i, pr := range f.probes {
		diff, ok := pr.Run(owner, params)
		if ok {
			w := f.handle.Write()
			w.Probes = state.InsertOrMerge(w.Probes, diff, probe.MergeState)
		}
		if pr.IsDead() {
			deadIdx = append(deadIdx, i)
		}
	}
	for i := len(deadIdx) - 1; i >= 0; i-- {
		idx := deadIdx[i]
		f.probes = append(f.probes[:idx], f.probes[idx+1:]...)
	}

	return f.handle.Flush()
}

// Die synthesizes the factory's death diff: the death cause plus a
// Scrapped death-state for every probe still owned.
func (f *Factory) Die(cause DeathCause) State {
	st := blankState(f.id)
	st.Death = &cause
	for _, pr := range f.probes {
		st.Probes = append(st.Probes, probe.ScrappedState(pr.ID()))
	}
	return st
}

// CompleteState returns a dense snapshot of the factory and its probes.
func (f *Factory) CompleteState() State {
	coord := f.pos
	st := State{ID: f.id, Coord: &coord}
	for _, pr := range f.probes {
		st.Probes = append(st.Probes, pr.CompleteState())
	}
	return st
}
