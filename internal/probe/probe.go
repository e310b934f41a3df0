// Package probe implements the mobile unit: a three-state policy
// (farm / attack / claim) that always makes forward progress or
// transitions, never blocking the tick.
package probe

import (
	"github.com/ploupy/simcore/internal/delay"
	"github.com/ploupy/simcore/internal/geometry"
	"github.com/ploupy/simcore/internal/identity"
	"github.com/ploupy/simcore/internal/mapgrid"
	"github.com/ploupy/simcore/internal/state"
	"github.com/ploupy/simcore/internal/tech"
	"github.com/ploupy/simcore/internal/xrand"
)

// Policy is the probe's current behavior mode.
type Policy uint8

const (
	PolicyFarm Policy = iota
	PolicyAttack
	PolicyClaim
)

// DeathCause records why a probe was destroyed.
type DeathCause uint8

const (
	DeathExploded DeathCause = iota
	DeathShot
	DeathScrapped
)

// Owner is the minimal view of a player a probe needs to run: its
// identity, its owned tech, and (for farm-target fallback) its factories'
// positions. Player-owned state is passed down by reference into Run, not
// held as a back-reference.
type Owner interface {
	ID() identity.ID
	HasTech(t tech.Tech) bool
	FactoryPositions() []geometry.Coord
}

// State is the sparse diff record for a probe. ID is nil exactly when the
// probe has just been created and has no identity yet.
type State struct {
	ID     *identity.ID
	Death  *DeathCause
	Pos    *geometry.Point
	Target *geometry.Coord
	Policy *Policy
}

// GetID implements state.Identifiable. A just-created probe (ID == nil)
// reports identity.NoneID; the factory appends such diffs directly rather
// than through InsertOrMerge, which compares ids with == and would fold two
// NoneID placeholders into one entry.
func (s State) GetID() identity.ID {
	if s.ID == nil {
		return identity.NoneID
	}
	return *s.ID
}

func blankState(id identity.ID) State {
	return State{ID: &id}
}

func mergeState(dst *State, src State) {
	if src.ID != nil {
		dst.ID = src.ID
	}
	if src.Death != nil {
		dst.Death = src.Death
	}
	if src.Pos != nil {
		dst.Pos = src.Pos
	}
	if src.Target != nil {
		dst.Target = src.Target
	}
	if src.Policy != nil {
		dst.Policy = src.Policy
	}
}

// MergeState folds src into dst, last-write-wins on every field.
func MergeState(dst *State, src State) {
	mergeState(dst, src)
}

// ScrappedState builds the death diff a factory synthesizes for each
// probe it owns when the factory itself dies.
func ScrappedState(id identity.ID) State {
	death := DeathScrapped
	return State{ID: &id, Death: &death}
}

// Probe is the mobile unit.
type Probe struct {
	id      identity.ID
	speed   float64
	hp      int
	policy  Policy
	pos     geometry.Point
	target  geometry.Point
	moveDir geometry.Point

	travelGate *delay.Gate
	claimGate  *delay.Gate

	handle *state.Handle[State]
}

// New creates a probe at pos (target = pos, no movement yet) with a fresh
// identity.
func New(pos geometry.Point, speed float64, hp int, claimDelaySeconds float64) *Probe {
	id := identity.New()
	return &Probe{
		id:         id,
		speed:      speed,
		hp:         hp,
		policy:     PolicyFarm,
		pos:        pos,
		target:     pos,
		travelGate: delay.New(0),
		claimGate:  delay.New(claimDelaySeconds),
		handle:     state.NewHandle(func() State { return blankState(id) }, mergeState),
	}
}

// ID returns the probe's identifier.
func (p *Probe) ID() identity.ID { return p.id }

// Pos returns the current position.
func (p *Probe) Pos() geometry.Point { return p.pos }

// Coord truncates the current position to a grid coordinate.
func (p *Probe) Coord() geometry.Coord { return p.pos.AsCoord() }

// HP returns current hit points.
func (p *Probe) HP() int { return p.hp }

// IsDead reports whether the probe has been reduced to 0 HP.
func (p *Probe) IsDead() bool { return p.hp <= 0 }

// CurrentPolicy returns the probe's behavior mode.
func (p *Probe) CurrentPolicy() Policy { return p.policy }

// setTargetManually recomputes the movement direction and resets the
// travel delay gate to the remaining distance at the probe's speed.
func (p *Probe) setTargetManually(target geometry.Point) {
	p.target = target
	delta := target.Sub(p.pos)
	p.moveDir = delta.Normalize().Scale(p.speed)
	p.travelGate.Reset()
	p.travelGate.SetThreshold(delta.Norm() / p.speed)
}

// SetFarmTarget sets the Farm policy and a new travel target, writing pos,
// target, and policy into the diff.
func (p *Probe) SetFarmTarget(target geometry.Coord) {
	p.policy = PolicyFarm
	w := p.handle.Write()
	pos := p.pos
	w.Pos = &pos
	w.Target = &target
	policy := PolicyFarm
	w.Policy = &policy
	p.setTargetManually(target.AsPoint())
}

// SetAttack sets the Attack policy, writing pos and policy into the diff,
// and selects an attack target via m.
func (p *Probe) SetAttack(owner Owner, m *mapgrid.Map, rng xrand.Source) {
	p.policy = PolicyAttack
	w := p.handle.Write()
	pos := p.pos
	w.Pos = &pos
	policy := PolicyAttack
	w.Policy = &policy
	if target, ok := m.GetProbeAttackTarget(owner.ID(), p.Coord(), rng); ok {
		tgt := target
		p.handle.Write().Target = &tgt
		p.setTargetManually(target.AsPoint())
	}
}

// InflictDamage applies d points of damage. If d meets or exceeds current
// HP, HP is zeroed and a Shot death is recorded.
func (p *Probe) InflictDamage(d int) {
	if d >= p.hp {
		p.hp = 0
		death := DeathShot
		p.handle.Write().Death = &death
		return
	}
	p.hp -= d
}

// Explode triggers an immediate explosion, independent of the Attack
// policy's travel-then-explode sequence.
func (p *Probe) Explode(ownerID identity.ID, m *mapgrid.Map, intensity int) {
	p.explode(ownerID, m, intensity)
}

// explode zeroes HP, records an Exploded death and claims every
// opponent-owned tile in the surrounding square (distance 1, including the
// probe's own tile).
func (p *Probe) explode(ownerID identity.ID, m *mapgrid.Map, intensity int) {
	p.hp = 0
	death := DeathExploded
	p.handle.Write().Death = &death
	for _, c := range geometry.Square(p.Coord(), 1) {
		if t := m.Get(c); t != nil && t.IsOwnedByOpponentOf(ownerID) {
			m.Claim(ownerID, c, intensity)
		}
	}
}

func (p *Probe) updatePos(dt float64) {
	p.pos = p.pos.Add(p.moveDir.Scale(dt))
}

// RunParams bundles the per-frame context a probe's Run needs: the shared
// map, the randomness source, dt, and the configured base intensities
// (tech bonuses are resolved against owner.HasTech and techs).
type RunParams struct {
	Dt                     float64
	Map                    *mapgrid.Map
	Rng                    xrand.Source
	BaseClaimIntensity     int
	BaseExplosionIntensity int
	Techs                  *tech.Table
}

func (params RunParams) claimIntensity(owner Owner) int {
	v := params.BaseClaimIntensity
	if owner.HasTech(tech.ProbeClaimIntensity) {
		v += int(params.Techs.Delta(tech.ProbeClaimIntensity))
	}
	return v
}

func (params RunParams) explosionIntensity(owner Owner) int {
	v := params.BaseExplosionIntensity
	if owner.HasTech(tech.ProbeExplosionIntensity) {
		v += int(params.Techs.Delta(tech.ProbeExplosionIntensity))
	}
	return v
}

// Run advances the probe by one frame and returns its diff, if any.
func (p *Probe) Run(owner Owner, params RunParams) (State, bool) {
	switch p.policy {
	case PolicyFarm:
		p.updatePos(params.Dt)
		if p.travelGate.Advance(params.Dt) {
			p.pos = p.target
			p.policy = PolicyClaim
			w := p.handle.Write()
			pos := p.pos
			w.Pos = &pos
			policy := PolicyClaim
			w.Policy = &policy
		}
	case PolicyAttack:
		p.updatePos(params.Dt)
		if p.travelGate.Advance(params.Dt) {
			p.pos = p.target
			coord := p.target.AsCoord()
			if t := params.Map.Get(coord); t != nil && t.IsOwnedByOpponentOf(owner.ID()) {
				p.explode(owner.ID(), params.Map, params.explosionIntensity(owner))
			} else {
				w := p.handle.Write()
				pos := p.pos
				w.Pos = &pos
				if target, ok := params.Map.GetProbeAttackTarget(owner.ID(), coord, params.Rng); ok {
					tgt := target
					p.handle.Write().Target = &tgt
					p.setTargetManually(target.AsPoint())
				}
			}
		}
	case PolicyClaim:
		if p.claimGate.Advance(params.Dt) {
			p.policy = PolicyFarm
			params.Map.Claim(owner.ID(), p.Coord(), params.claimIntensity(owner))
			if target, ok := params.Map.GetProbeFarmTarget(owner.ID(), p.Coord(), owner.FactoryPositions(), params.Rng); ok {
				p.SetFarmTarget(target)
			}
		}
	}
	return p.handle.Flush()
}

// CompleteState returns a dense snapshot of the probe.
func (p *Probe) CompleteState() State {
	id := p.id
	pos := p.pos
	target := p.target.AsCoord()
	policy := p.policy
	return State{ID: &id, Pos: &pos, Target: &target, Policy: &policy}
}
