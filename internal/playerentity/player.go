// Package playerentity implements the player aggregate: money, owned
// factories and turrets, acquired technologies, and the per-frame run that
// drives them all.
package playerentity

import (
	"math"

	"github.com/ploupy/simcore/internal/actionerr"
	"github.com/ploupy/simcore/internal/delay"
	"github.com/ploupy/simcore/internal/factory"
	"github.com/ploupy/simcore/internal/geometry"
	"github.com/ploupy/simcore/internal/identity"
	"github.com/ploupy/simcore/internal/mapgrid"
	"github.com/ploupy/simcore/internal/probe"
	"github.com/ploupy/simcore/internal/state"
	"github.com/ploupy/simcore/internal/tech"
	"github.com/ploupy/simcore/internal/turret"
	"github.com/ploupy/simcore/internal/xrand"
)

const incomeGateSeconds = 1.0

// DeathCause records why a player left the game.
type DeathCause uint8

const (
	DeathDefeated DeathCause = iota
	DeathResigned
)

// State is the sparse diff record for a player. Techs lists only the
// technologies newly acquired this frame, not the full owned set:
// sub-entity lists are appended, not replaced.
type State struct {
	ID        identity.ID
	Death     *DeathCause
	Money     *float64
	Income    *float64
	Techs     []tech.Tech
	Factories []factory.State
	Turrets   []turret.State
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
	if src.Money != nil {
		dst.Money = src.Money
	}
	if src.Income != nil {
		dst.Income = src.Income
	}
	dst.Techs = append(dst.Techs, src.Techs...)
	for _, f := range src.Factories {
		dst.Factories = state.InsertOrMerge(dst.Factories, f, factory.MergeState)
	}
	for _, t := range src.Turrets {
		dst.Turrets = state.InsertOrMerge(dst.Turrets, t, turret.MergeState)
	}
}

// MergeState folds src into dst, for Game's insert-or-merge into its own
// nested player-diff list.
func MergeState(dst *State, src State) {
	mergeState(dst, src)
}

// StatSample is one entry of a player's cumulative statistics series,
// recorded each time the income gate fires.
type StatSample struct {
	Elapsed      float64
	Money        float64
	Income       float64
	Occupation   int
	FactoryCount int
	TurretCount  int
	ProbeCount   int
}

// Config bundles every base stat and tech-priced table a player needs to
// construct and run its own units. FactoryCfg/TurretCfg carry tech deltas
// already baked in (resolved once from Techs at Game construction time);
// FactoryBuildDelay/TurretFireDelay keep the un-modified base thresholds so
// a later tech acquisition can recompute them.
type Config struct {
	FactoryPrice      float64
	FactoryCfg        factory.Config
	FactoryBuildDelay float64

	TurretPrice     float64
	TurretCfg       turret.Config
	TurretFireDelay float64

	ProbePrice             float64
	ProbeSpeed             float64
	ProbeHP                int
	ProbeClaimDelay        float64
	ProbeMaintenanceCosts  float64
	BaseClaimIntensity     int
	BaseExplosionIntensity int

	BaseIncome     float64
	IncomeRate     float64
	BuildingOccMin int

	Techs *tech.Table
}

// Player is the aggregate owning factories, turrets, technologies and money.
type Player struct {
	id    identity.ID
	money float64

	factories []*factory.Factory
	turrets   []*turret.Turret
	techs     tech.Set

	pendingTechEffects []tech.Tech

	incomeGate *delay.Gate
	stats      []StatSample

	cfg    Config
	handle *state.Handle[State]
}

// New creates a player with the given starting money.
func New(id identity.ID, initialMoney float64, cfg Config) *Player {
	return &Player{
		id:         id,
		money:      initialMoney,
		techs:      tech.NewSet(),
		incomeGate: delay.New(incomeGateSeconds),
		cfg:        cfg,
		handle:     state.NewHandle(func() State { return blankState(id) }, mergeState),
	}
}

// ID returns the player's identifier.
func (p *Player) ID() identity.ID { return p.id }

// HasTech reports whether t is owned, implementing probe/factory/turret Owner.
func (p *Player) HasTech(t tech.Tech) bool { return p.techs.Has(t) }

// FactoryPositions returns the positions of every owned factory, in list
// order, for the farm-target fallback search.
func (p *Player) FactoryPositions() []geometry.Coord {
	out := make([]geometry.Coord, len(p.factories))
	for i, f := range p.factories {
		out[i] = f.Pos()
	}
	return out
}

// Probes returns every probe owned across all factories, implementing
// turret.OpponentProbes so a Player can stand directly as another player's
// opponent with no adapter.
func (p *Player) Probes() []*probe.Probe {
	var out []*probe.Probe
	for _, f := range p.factories {
		out = append(out, f.Probes()...)
	}
	return out
}

// Money returns current money.
func (p *Player) Money() float64 { return p.money }

// Factories returns the owned factory list.
func (p *Player) Factories() []*factory.Factory { return p.factories }

// Turrets returns the owned turret list.
func (p *Player) Turrets() []*turret.Turret { return p.turrets }

// Techs returns the owned technology set.
func (p *Player) Techs() tech.Set { return p.techs }

// Stats returns the recorded statistics series.
func (p *Player) Stats() []StatSample { return p.stats }

// IsDefeated reports whether the player has no factories left.
func (p *Player) IsDefeated() bool { return len(p.factories) == 0 }

// AttachFactory adds a pre-built factory directly (used by Game
// construction for each player's starter factory, bypassing the
// money-debiting build_factory action).
func (p *Player) AttachFactory(f *factory.Factory) {
	p.factories = append(p.factories, f)
}

func (p *Player) findProbe(id identity.ID) (*probe.Probe, bool) {
	for _, f := range p.factories {
		for _, pr := range f.Probes() {
			if pr.ID() == id {
				return pr, true
			}
		}
	}
	return nil, false
}

func (p *Player) effectiveProbeHP() int {
	hp := p.cfg.ProbeHP
	if p.techs.Has(tech.ProbeHP) {
		hp += int(p.cfg.Techs.Delta(tech.ProbeHP))
	}
	return hp
}

func (p *Player) effectiveProbePrice() float64 {
	price := p.cfg.ProbePrice
	if p.techs.Has(tech.FactoryProbePrice) {
		price -= p.cfg.Techs.Delta(tech.FactoryProbePrice)
	}
	return price
}

// SetProbeTarget re-sets a farming probe's target.
func (p *Player) SetProbeTarget(id identity.ID, target geometry.Coord) error {
	pr, ok := p.findProbe(id)
	if !ok {
		return actionerr.New(actionerr.InvalidProbe)
	}
	pr.SetFarmTarget(target)
	return nil
}

// ExplodeProbe triggers an immediate explosion.
func (p *Player) ExplodeProbe(id identity.ID, m *mapgrid.Map) error {
	pr, ok := p.findProbe(id)
	if !ok {
		return actionerr.New(actionerr.InvalidProbe)
	}
	intensity := p.cfg.BaseExplosionIntensity
	if p.techs.Has(tech.ProbeExplosionIntensity) {
		intensity += int(p.cfg.Techs.Delta(tech.ProbeExplosionIntensity))
	}
	pr.Explode(p.id, m, intensity)
	return nil
}

// ProbeAttack switches a probe to the Attack policy.
func (p *Player) ProbeAttack(id identity.ID, m *mapgrid.Map, rng xrand.Source) error {
	pr, ok := p.findProbe(id)
	if !ok {
		return actionerr.New(actionerr.InvalidProbe)
	}
	pr.SetAttack(p, m, rng)
	return nil
}

// BuildFactory places a new factory at pos if the tile is eligible and
// money allows.
func (p *Player) BuildFactory(pos geometry.Coord, m *mapgrid.Map) error {
	t := m.Get(pos)
	if t == nil {
		return actionerr.New(actionerr.InvalidTile)
	}
	if !t.IsOwnedBy(p.id) || t.Occupation() < p.cfg.BuildingOccMin || t.BuildingID().Valid() {
		return actionerr.New(actionerr.CannotBuildOnTile)
	}
	if p.money < p.cfg.FactoryPrice {
		return actionerr.WithAmount(actionerr.InsufficientMoney, p.cfg.FactoryPrice-p.money)
	}
	p.money -= p.cfg.FactoryPrice
	f := factory.New(pos, p.cfg.FactoryCfg)
	p.factories = append(p.factories, f)
	m.PlaceBuilding(pos, f.ID())

	coord := pos
	w := p.handle.Write()
	w.Factories = state.InsertOrMerge(w.Factories, factory.State{ID: f.ID(), Coord: &coord}, factory.MergeState)
	money := p.money
	w.Money = &money
	return nil
}

// BuildTurret places a new turret at pos if the tile is eligible and money
// allows.
func (p *Player) BuildTurret(pos geometry.Coord, m *mapgrid.Map) error {
	t := m.Get(pos)
	if t == nil {
		return actionerr.New(actionerr.InvalidTile)
	}
	if !t.IsOwnedBy(p.id) || t.Occupation() < p.cfg.BuildingOccMin || t.BuildingID().Valid() {
		return actionerr.New(actionerr.CannotBuildOnTile)
	}
	if p.money < p.cfg.TurretPrice {
		return actionerr.WithAmount(actionerr.InsufficientMoney, p.cfg.TurretPrice-p.money)
	}
	p.money -= p.cfg.TurretPrice
	tu := turret.New(pos, p.cfg.TurretCfg)
	p.turrets = append(p.turrets, tu)
	m.PlaceBuilding(pos, tu.ID())

	coord := pos
	w := p.handle.Write()
	w.Turrets = state.InsertOrMerge(w.Turrets, turret.State{ID: tu.ID(), Coord: &coord}, turret.MergeState)
	money := p.money
	w.Money = &money
	return nil
}

// KillFactory removes a factory by id and returns its die-synthesized diff.
// It does not itself trigger player death, and does not write into the
// player's own diff handle: this is invoked by Game during same-tick
// map-death reconciliation, which merges the returned diff into the root
// game diff directly.
func (p *Player) KillFactory(id identity.ID, cause factory.DeathCause) (factory.State, error) {
	for i, f := range p.factories {
		if f.ID() != id {
			continue
		}
		st := f.Die(cause)
		p.factories = append(p.factories[:i], p.factories[i+1:]...)
		return st, nil
	}
	return factory.State{}, actionerr.New(actionerr.InvalidFactory)
}

// KillTurret removes a turret by id and returns its die-synthesized diff.
// See KillFactory for why it bypasses the player's own diff handle.
func (p *Player) KillTurret(id identity.ID, cause turret.DeathCause) (turret.State, error) {
	for i, t := range p.turrets {
		if t.ID() != id {
			continue
		}
		st := t.Die(cause)
		p.turrets = append(p.turrets[:i], p.turrets[i+1:]...)
		return st, nil
	}
	return turret.State{}, actionerr.New(actionerr.InvalidTurret)
}

// AcquireTech buys a technology, rejecting on ownership/conflict/price.
// The resulting rewrite side-effects (factory produce delay, turret fire
// delay) are applied during the next Run, after income is settled.
func (p *Player) AcquireTech(t tech.Tech) error {
	if p.techs.Has(t) {
		return actionerr.New(actionerr.TechAlreadyAcquired)
	}
	if p.techs.ConflictsWith(t) {
		return actionerr.New(actionerr.TechCategoryConflict)
	}
	price := p.cfg.Techs.Price(t)
	if p.money < price {
		return actionerr.WithAmount(actionerr.TechInsufficientMoney, price-p.money)
	}
	p.money -= price
	p.techs.Add(t)
	p.pendingTechEffects = append(p.pendingTechEffects, t)

	w := p.handle.Write()
	w.Techs = append(w.Techs, t)
	money := p.money
	w.Money = &money
	return nil
}

// Resign marks the player Resigned. The death diff is picked up by the
// next Run's flush.
func (p *Player) Resign() {
	death := DeathResigned
	w := p.handle.Write()
	w.Death = &death
}

func (p *Player) applyTechEffects() {
	for _, t := range p.pendingTechEffects {
		switch t {
		case tech.FactoryBuildDelay:
			newDelay := p.cfg.FactoryBuildDelay - p.cfg.Techs.Delta(tech.FactoryBuildDelay)
			for _, f := range p.factories {
				f.SetProduceDelay(newDelay)
			}
		case tech.TurretFireDelay:
			newDelay := p.cfg.TurretFireDelay - p.cfg.Techs.Delta(tech.TurretFireDelay)
			for _, tu := range p.turrets {
				tu.SetFireDelay(newDelay)
			}
		}
	}
	p.pendingTechEffects = nil
}

func (p *Player) recordStats(occupation int, income float64) {
	probeCount := 0
	for _, f := range p.factories {
		probeCount += f.ProbeCount()
	}
	p.stats = append(p.stats, StatSample{
		Elapsed:      p.incomeGate.TotalElapsed(),
		Money:        p.money,
		Income:       income,
		Occupation:   occupation,
		FactoryCount: len(p.factories),
		TurretCount:  len(p.turrets),
		ProbeCount:   probeCount,
	})
}

// RunContext bundles the per-frame context a player's Run needs.
type RunContext struct {
	Dt  float64
	Map *mapgrid.Map
	Rng xrand.Source
}

// Run advances the player by one frame: factories, turrets, income,
// tech side-effects, lose-check, flush.
func (p *Player) Run(ctx RunContext, opponents []turret.OpponentProbes) (State, bool) {
	price := p.effectiveProbePrice()
	probeParams := probe.RunParams{
		Dt:                     ctx.Dt,
		Map:                    ctx.Map,
		Rng:                    ctx.Rng,
		BaseClaimIntensity:     p.cfg.BaseClaimIntensity,
		BaseExplosionIntensity: p.cfg.BaseExplosionIntensity,
		Techs:                  p.cfg.Techs,
	}

	var deadFactoryIdx []int
	for i, f := range p.factories {
		diff, ok := f.Run(p, probeParams)
		if !ok {
			continue
		}
		if diff.Death != nil {
			deadFactoryIdx = append(deadFactoryIdx, i)
		}

		confirmed := diff.Probes[:0]
		for _, ps := range diff.Probes {
			if ps.ID != nil {
				confirmed = append(confirmed, ps)
				continue
			}
			if p.money < price {
				continue
			}
			p.money -= price
			pr := probe.New(*ps.Pos, p.cfg.ProbeSpeed, p.effectiveProbeHP(), p.cfg.ProbeClaimDelay)
			f.AttachProbe(pr)
			target, found := ctx.Map.GetProbeFarmTarget(p.id, pr.Coord(), p.FactoryPositions(), ctx.Rng)
			if !found {
				target = pr.Coord()
			}
			pr.SetFarmTarget(target)
			confirmed = append(confirmed, pr.CompleteState())
		}
		diff.Probes = confirmed

		w := p.handle.Write()
		w.Factories = state.InsertOrMerge(w.Factories, diff, factory.MergeState)
	}
	for i := len(deadFactoryIdx) - 1; i >= 0; i-- {
		idx := deadFactoryIdx[i]
		p.factories = append(p.factories[:idx], p.factories[idx+1:]...)
	}

	var deadTurretIdx []int
	for i, tu := range p.turrets {
		diff, ok := tu.Run(p, ctx.Dt, opponents)
		if !ok {
			continue
		}
		if diff.Death != nil {
			deadTurretIdx = append(deadTurretIdx, i)
		}
		w := p.handle.Write()
		w.Turrets = state.InsertOrMerge(w.Turrets, diff, turret.MergeState)
	}
	for i := len(deadTurretIdx) - 1; i >= 0; i-- {
		idx := deadTurretIdx[i]
		p.turrets = append(p.turrets[:idx], p.turrets[idx+1:]...)
	}

	if p.incomeGate.Advance(ctx.Dt) {
		occupation := ctx.Map.GetPlayerOccupation(p.id)
		income := p.cfg.BaseIncome + float64(occupation)*p.cfg.IncomeRate
		for _, f := range p.factories {
			income += f.Income(p.cfg.ProbeMaintenanceCosts)
		}
		for _, tu := range p.turrets {
			income += tu.Income(p)
		}
		p.money = math.Max(0, p.money+income)

		w := p.handle.Write()
		money := p.money
		w.Money = &money
		predicted := income
		w.Income = &predicted

		p.recordStats(occupation, income)
	}

	p.applyTechEffects()

	if len(p.factories) == 0 {
		death := DeathDefeated
		w := p.handle.Write()
		w.Death = &death
	}

	return p.handle.Flush()
}

// CompleteState returns a dense snapshot of the player and its units.
func (p *Player) CompleteState() State {
	money := p.money
	st := State{ID: p.id, Money: &money, Techs: p.techs.List()}
	for _, f := range p.factories {
		st.Factories = append(st.Factories, f.CompleteState())
	}
	for _, tu := range p.turrets {
		st.Turrets = append(st.Turrets, tu.CompleteState())
	}
	return st
}
