// Package simulation implements the Game root aggregate: construction
// (start-position placement, starter factories and probes), the per-frame
// run driving every player and the map, map-induced building-death
// reconciliation, and the host-facing action surface.
package simulation

import (
	"math"

	"github.com/ploupy/simcore/config"
	"github.com/ploupy/simcore/internal/actionerr"
	"github.com/ploupy/simcore/internal/factory"
	"github.com/ploupy/simcore/internal/geometry"
	"github.com/ploupy/simcore/internal/identity"
	"github.com/ploupy/simcore/internal/mapgrid"
	"github.com/ploupy/simcore/internal/playerentity"
	"github.com/ploupy/simcore/internal/probe"
	"github.com/ploupy/simcore/internal/state"
	"github.com/ploupy/simcore/internal/tech"
	"github.com/ploupy/simcore/internal/turret"
	"github.com/ploupy/simcore/internal/xrand"
)

// State is the root sparse diff: every player diff touched this frame, every
// map tile diff, and the game-ended flag.
type State struct {
	Players []playerentity.State
	Tiles   []mapgrid.TileState
	Ended   *bool
}

func blankState() State { return State{} }

func mergeState(dst *State, src State) {
	for _, ps := range src.Players {
		dst.Players = state.InsertOrMerge(dst.Players, ps, playerentity.MergeState)
	}
	for _, ts := range src.Tiles {
		dst.Tiles = state.InsertOrMerge(dst.Tiles, ts, mapgrid.MergeTileState)
	}
	if src.Ended != nil {
		dst.Ended = src.Ended
	}
}

// Game is the root simulation aggregate.
type Game struct {
	dim geometry.Coord

	m   *mapgrid.Map
	rng xrand.Source

	order   []identity.ID
	players map[identity.ID]*playerentity.Player

	finalStats map[identity.ID][]playerentity.StatSample

	ended  bool
	handle *state.Handle[State]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func buildPlayerConfig(cfg *config.Config, tt *tech.Table) playerentity.Config {
	return playerentity.Config{
		FactoryPrice: cfg.FactoryPrice,
		FactoryCfg: factory.Config{
			ExpansionSize:     cfg.FactoryExpansionSize,
			ProduceDelay:      cfg.FactoryBuildDelay,
			MaxProbe:          cfg.FactoryMaxProbe,
			MaxProbeTechDelta: int(tt.Delta(tech.FactoryMaxProbe)),
			MaintenanceCosts:  cfg.FactoryMaintenanceCosts,
		},
		FactoryBuildDelay: cfg.FactoryBuildDelay,

		TurretPrice: cfg.TurretPrice,
		TurretCfg: turret.Config{
			Scope:                     cfg.TurretScope,
			Damage:                    cfg.TurretDamage,
			FireDelay:                 cfg.TurretFireDelay,
			MaintenanceCosts:          cfg.TurretMaintenanceCosts,
			ScopeTechDelta:            tt.Delta(tech.TurretScope),
			MaintenanceCostsTechDelta: tt.Delta(tech.TurretMaintenanceCosts),
		},
		TurretFireDelay: cfg.TurretFireDelay,

		ProbePrice:             cfg.ProbePrice,
		ProbeSpeed:             cfg.ProbeSpeed,
		ProbeHP:                cfg.ProbeHP,
		ProbeClaimDelay:        cfg.ProbeClaimDelay,
		ProbeMaintenanceCosts:  cfg.ProbeMaintenanceCosts,
		BaseClaimIntensity:     cfg.ProbeClaimIntensity,
		BaseExplosionIntensity: cfg.ProbeExplosionIntensity,

		BaseIncome:     cfg.BaseIncome,
		IncomeRate:     cfg.IncomeRate,
		BuildingOccMin: cfg.BuildingOccMin,

		Techs: tt,
	}
}

// New constructs a game for the given players: a map, one starter factory
// per player at evenly-spaced start positions around a circle inscribed in
// the map, and initial_n_probes probes attached to each. Start positions
// are identical for identical player count and dimensions. rng is
// supplied by the host: seeding policy is its responsibility, not this
// package's.
func New(playerIDs []identity.ID, cfg *config.Config, rng xrand.Source) *Game {
	dim := geometry.Coord{X: cfg.DimX, Y: cfg.DimY}
	m := mapgrid.New(dim, cfg.MaxOccupation, cfg.DeprecationRate)
	techTable := cfg.TechTable()
	playerCfg := buildPlayerConfig(cfg, techTable)

	g := &Game{
		dim:        dim,
		m:          m,
		rng:        rng,
		players:    make(map[identity.ID]*playerentity.Player, len(playerIDs)),
		finalStats: make(map[identity.ID][]playerentity.StatSample),
		handle:     state.NewHandle(blankState, mergeState),
	}

	n := len(playerIDs)
	radius := float64(minInt(dim.X, dim.Y)) / 2
	margin := radius / 5
	effRadius := radius - margin
	center := geometry.Point{X: float64(dim.X) / 2, Y: float64(dim.Y) / 2}

	for i, id := range playerIDs {
		angle := float64(i) / float64(n) * 2 * math.Pi
		startPoint := geometry.Point{
			X: center.X + effRadius*math.Cos(angle),
			Y: center.Y + effRadius*math.Sin(angle),
		}
		start := startPoint.AsCoord()

		pl := playerentity.New(id, cfg.InitialMoney, playerCfg)
		f := factory.New(start, playerCfg.FactoryCfg)
		pl.AttachFactory(f)

		m.Claim(id, start, cfg.MaxOccupation)
		m.PlaceBuilding(start, f.ID())

		for k := 0; k < cfg.InitialNProbes; k++ {
			pr := probe.New(start.AsPoint(), cfg.ProbeSpeed, cfg.ProbeHP, cfg.ProbeClaimDelay)
			if target, ok := m.GetProbeFarmTarget(id, start, pl.FactoryPositions(), rng); ok {
				pr.SetFarmTarget(target)
			}
			f.AttachProbe(pr)
		}

		g.players[id] = pl
		g.order = append(g.order, id)
	}

	return g
}

func (g *Game) opponentsExcluding(id identity.ID) []turret.OpponentProbes {
	out := make([]turret.OpponentProbes, 0, len(g.order)-1)
	for _, oid := range g.order {
		if oid == id {
			continue
		}
		out = append(out, g.players[oid])
	}
	return out
}

// Run advances the simulation by one tick.
func (g *Game) Run(dt float64) (State, bool) {
	var deadIdx []int
	for i, id := range g.order {
		pl := g.players[id]
		diff, ok := pl.Run(playerentity.RunContext{Dt: dt, Map: g.m, Rng: g.rng}, g.opponentsExcluding(id))
		if ok {
			w := g.handle.Write()
			w.Players = state.InsertOrMerge(w.Players, diff, playerentity.MergeState)
		}
		if diff.Death != nil {
			deadIdx = append(deadIdx, i)
		}
	}
	for i := len(deadIdx) - 1; i >= 0; i-- {
		idx := deadIdx[i]
		id := g.order[idx]
		g.finalStats[id] = g.players[id].Stats()
		delete(g.players, id)
		g.order = append(g.order[:idx], g.order[idx+1:]...)
	}

	g.m.Tick(dt, g.rng)
	if mapDiff, ok := g.m.Flush(); ok {
		w := g.handle.Write()
		for _, ts := range mapDiff.Tiles {
			w.Tiles = state.InsertOrMerge(w.Tiles, ts, mapgrid.MergeTileState)
		}
	}

	for _, db := range g.m.DrainDeadBuildings() {
		owner, ok := g.players[db.OwnerID]
		if !ok {
			continue
		}
		if fs, err := owner.KillFactory(db.BuildingID, factory.DeathConquered); err == nil {
			w := g.handle.Write()
			w.Players = state.InsertOrMerge(w.Players, playerentity.State{ID: db.OwnerID, Factories: []factory.State{fs}}, playerentity.MergeState)
			continue
		}
		if ts, err := owner.KillTurret(db.BuildingID, turret.DeathConquered); err == nil {
			w := g.handle.Write()
			w.Players = state.InsertOrMerge(w.Players, playerentity.State{ID: db.OwnerID, Turrets: []turret.State{ts}}, playerentity.MergeState)
		}
	}

	if len(g.order) == 1 && !g.ended {
		g.ended = true
		ended := true
		w := g.handle.Write()
		w.Ended = &ended
	}

	return g.handle.Flush()
}

// CompleteState returns a dense, eagerly-built snapshot of every tile,
// every unit, and every player's money and tech list.
func (g *Game) CompleteState() State {
	var st State
	for _, id := range g.order {
		st.Players = append(st.Players, g.players[id].CompleteState())
	}
	st.Tiles = g.m.CompleteState().Tiles
	ended := g.ended
	st.Ended = &ended
	return st
}

// Dim returns the map's grid dimensions.
func (g *Game) Dim() geometry.Coord { return g.dim }

func (g *Game) getPlayer(id identity.ID) (*playerentity.Player, error) {
	pl, ok := g.players[id]
	if !ok {
		return nil, actionerr.New(actionerr.InvalidPlayer)
	}
	return pl, nil
}

// ResignGame marks a player Resigned; the death takes effect on the diff
// flushed by the next Run.
func (g *Game) ResignGame(playerID identity.ID) error {
	pl, err := g.getPlayer(playerID)
	if err != nil {
		return err
	}
	pl.Resign()
	return nil
}

// CreateFactory is the create_factory host action.
func (g *Game) CreateFactory(playerID identity.ID, pos geometry.Coord) error {
	pl, err := g.getPlayer(playerID)
	if err != nil {
		return err
	}
	return pl.BuildFactory(pos, g.m)
}

// CreateTurret is the create_turret host action.
func (g *Game) CreateTurret(playerID identity.ID, pos geometry.Coord) error {
	pl, err := g.getPlayer(playerID)
	if err != nil {
		return err
	}
	return pl.BuildTurret(pos, g.m)
}

// MoveProbes is the move_probes host action, applied to each listed probe.
func (g *Game) MoveProbes(playerID identity.ID, probeIDs []identity.ID, target geometry.Coord) error {
	pl, err := g.getPlayer(playerID)
	if err != nil {
		return err
	}
	for _, pid := range probeIDs {
		if err := pl.SetProbeTarget(pid, target); err != nil {
			return err
		}
	}
	return nil
}

// ExplodeProbes is the explode_probes host action.
func (g *Game) ExplodeProbes(playerID identity.ID, probeIDs []identity.ID) error {
	pl, err := g.getPlayer(playerID)
	if err != nil {
		return err
	}
	for _, pid := range probeIDs {
		if err := pl.ExplodeProbe(pid, g.m); err != nil {
			return err
		}
	}
	return nil
}

// ProbesAttack is the probes_attack host action.
func (g *Game) ProbesAttack(playerID identity.ID, probeIDs []identity.ID) error {
	pl, err := g.getPlayer(playerID)
	if err != nil {
		return err
	}
	for _, pid := range probeIDs {
		if err := pl.ProbeAttack(pid, g.m, g.rng); err != nil {
			return err
		}
	}
	return nil
}

// AcquireTech is the acquire_tech host action; techName must be one of the
// nine canonical technology names.
func (g *Game) AcquireTech(playerID identity.ID, techName string) error {
	pl, err := g.getPlayer(playerID)
	if err != nil {
		return err
	}
	t, ok := tech.ByName(techName)
	if !ok {
		return actionerr.New(actionerr.InvalidTechName)
	}
	return pl.AcquireTech(t)
}

// GetPlayersStats returns the statistics series for every player, live or
// departed.
func (g *Game) GetPlayersStats() map[identity.ID][]playerentity.StatSample {
	out := make(map[identity.ID][]playerentity.StatSample, len(g.players)+len(g.finalStats))
	for id, stats := range g.finalStats {
		out[id] = stats
	}
	for id, pl := range g.players {
		out[id] = pl.Stats()
	}
	return out
}
