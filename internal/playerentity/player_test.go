package playerentity

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ploupy/simcore/internal/actionerr"
	"github.com/ploupy/simcore/internal/factory"
	"github.com/ploupy/simcore/internal/geometry"
	"github.com/ploupy/simcore/internal/identity"
	"github.com/ploupy/simcore/internal/mapgrid"
	"github.com/ploupy/simcore/internal/tech"
	"github.com/ploupy/simcore/internal/turret"
	"github.com/ploupy/simcore/internal/xrand"
)

func baseConfig(techs *tech.Table) Config {
	return Config{
		FactoryPrice:      100,
		FactoryCfg:        factory.Config{ExpansionSize: 1, ProduceDelay: 1.0, MaxProbe: 2, MaintenanceCosts: 1},
		FactoryBuildDelay: 1.0,

		TurretPrice:     50,
		TurretCfg:       turret.Config{Scope: 3, Damage: 10, FireDelay: 1.0, MaintenanceCosts: 1},
		TurretFireDelay: 1.0,

		ProbePrice:             10,
		ProbeSpeed:             1.0,
		ProbeHP:                5,
		ProbeClaimDelay:        1.0,
		ProbeMaintenanceCosts:  0.5,
		BaseClaimIntensity:     2,
		BaseExplosionIntensity: 3,

		BaseIncome:     1,
		IncomeRate:     0.1,
		BuildingOccMin: 5,

		Techs: techs,
	}
}

func newMap() *mapgrid.Map {
	return mapgrid.New(geometry.Coord{X: 20, Y: 20}, 10, 0.1)
}

func TestBuildFactory(t *testing.T) {
	Convey("Given a player with money standing on a well-claimed tile", t, func() {
		tt := tech.NewTable(nil)
		p := New(identity.New(), 200, baseConfig(tt))
		m := newMap()
		coord := geometry.Coord{X: 5, Y: 5}
		m.Claim(p.ID(), coord, 10)

		Convey("BuildFactory debits money, attaches the factory, and places it on the map", func() {
			err := p.BuildFactory(coord, m)
			So(err, ShouldBeNil)
			So(p.Money(), ShouldEqual, 100)
			So(len(p.Factories()), ShouldEqual, 1)
			So(m.Get(coord).BuildingID(), ShouldEqual, p.Factories()[0].ID())
		})

		Convey("a tile not owned by the player is rejected", func() {
			other := geometry.Coord{X: 6, Y: 6}
			err := p.BuildFactory(other, m)
			So(err, ShouldNotBeNil)
			So(err.(*actionerr.Error).Code, ShouldEqual, actionerr.CannotBuildOnTile)
		})

		Convey("a tile below the building occupation minimum is rejected", func() {
			low := geometry.Coord{X: 7, Y: 7}
			m.Claim(p.ID(), low, 2)
			err := p.BuildFactory(low, m)
			So(err.(*actionerr.Error).Code, ShouldEqual, actionerr.CannotBuildOnTile)
		})

		Convey("insufficient money is rejected with the amount still required", func() {
			poor := New(identity.New(), 10, baseConfig(tt))
			spot := geometry.Coord{X: 4, Y: 4}
			m.Claim(poor.ID(), spot, 10)
			err := poor.BuildFactory(spot, m)
			aerr := err.(*actionerr.Error)
			So(aerr.Code, ShouldEqual, actionerr.InsufficientMoney)
			So(aerr.Amount, ShouldEqual, 90)
		})

		Convey("a tile already holding a building is rejected", func() {
			p.BuildFactory(coord, m)
			err := p.BuildFactory(coord, m)
			So(err.(*actionerr.Error).Code, ShouldEqual, actionerr.CannotBuildOnTile)
		})
	})
}

func TestBuildTurret(t *testing.T) {
	Convey("Given a player with money standing on a well-claimed tile", t, func() {
		tt := tech.NewTable(nil)
		p := New(identity.New(), 200, baseConfig(tt))
		m := newMap()
		coord := geometry.Coord{X: 3, Y: 3}
		m.Claim(p.ID(), coord, 10)

		Convey("BuildTurret debits money and attaches the turret", func() {
			err := p.BuildTurret(coord, m)
			So(err, ShouldBeNil)
			So(p.Money(), ShouldEqual, 150)
			So(len(p.Turrets()), ShouldEqual, 1)
		})
	})
}

func TestKillFactoryAndTurret(t *testing.T) {
	Convey("Given a player owning one factory and one turret", t, func() {
		tt := tech.NewTable(nil)
		p := New(identity.New(), 200, baseConfig(tt))
		m := newMap()
		fCoord := geometry.Coord{X: 1, Y: 1}
		tCoord := geometry.Coord{X: 2, Y: 2}
		m.Claim(p.ID(), fCoord, 10)
		m.Claim(p.ID(), tCoord, 10)
		p.BuildFactory(fCoord, m)
		p.BuildTurret(tCoord, m)
		fID := p.Factories()[0].ID()
		tID := p.Turrets()[0].ID()

		Convey("KillFactory removes it and returns a death diff, without touching the player's own handle", func() {
			p.handle.Flush() // drop the build diffs written during setup
			st, err := p.KillFactory(fID, factory.DeathConquered)
			So(err, ShouldBeNil)
			So(*st.Death, ShouldEqual, factory.DeathConquered)
			So(len(p.Factories()), ShouldEqual, 0)
			_, flushed := p.handle.Flush()
			So(flushed, ShouldBeFalse)
		})

		Convey("KillTurret removes it and returns a death diff", func() {
			st, err := p.KillTurret(tID, turret.DeathConquered)
			So(err, ShouldBeNil)
			So(*st.Death, ShouldEqual, turret.DeathConquered)
			So(len(p.Turrets()), ShouldEqual, 0)
		})

		Convey("killing an unknown id is rejected", func() {
			_, err := p.KillFactory(identity.New(), factory.DeathConquered)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestAcquireTech(t *testing.T) {
	Convey("Given a player with money and no techs", t, func() {
		tt := tech.NewTable(map[tech.Tech]tech.Effect{
			tech.ProbeHP: {Price: 20, Delta: 5},
		})
		p := New(identity.New(), 100, baseConfig(tt))

		Convey("acquiring an affordable tech debits money and records ownership", func() {
			err := p.AcquireTech(tech.ProbeHP)
			So(err, ShouldBeNil)
			So(p.Money(), ShouldEqual, 80)
			So(p.Techs().Has(tech.ProbeHP), ShouldBeTrue)
		})

		Convey("acquiring the same tech twice is rejected", func() {
			p.AcquireTech(tech.ProbeHP)
			err := p.AcquireTech(tech.ProbeHP)
			So(err.(*actionerr.Error).Code, ShouldEqual, actionerr.TechAlreadyAcquired)
		})

		Convey("acquiring a same-category tech is rejected as a conflict", func() {
			p.AcquireTech(tech.ProbeHP)
			err := p.AcquireTech(tech.ProbeClaimIntensity)
			So(err.(*actionerr.Error).Code, ShouldEqual, actionerr.TechCategoryConflict)
		})

		Convey("acquiring an unaffordable tech is rejected", func() {
			poor := New(identity.New(), 5, baseConfig(tt))
			err := poor.AcquireTech(tech.ProbeHP)
			So(err.(*actionerr.Error).Code, ShouldEqual, actionerr.TechInsufficientMoney)
		})
	})
}

func TestRunIncomeAndDefeat(t *testing.T) {
	Convey("Given a player with one factory and the income gate about to fire", t, func() {
		tt := tech.NewTable(nil)
		p := New(identity.New(), 200, baseConfig(tt))
		m := newMap()
		coord := geometry.Coord{X: 8, Y: 8}
		m.Claim(p.ID(), coord, 10)
		p.BuildFactory(coord, m)
		rng := xrand.New(1)

		Convey("a 1-second tick records income and a stats sample", func() {
			diff, ok := p.Run(RunContext{Dt: 1.0, Map: m, Rng: rng}, nil)
			So(ok, ShouldBeTrue)
			So(diff.Income, ShouldNotBeNil)
			So(len(p.Stats()), ShouldEqual, 1)
		})

		Convey("a player with no factories left is marked Defeated on the next Run", func() {
			fID := p.Factories()[0].ID()
			p.KillFactory(fID, factory.DeathConquered)
			diff, ok := p.Run(RunContext{Dt: 0.1, Map: m, Rng: rng}, nil)
			So(ok, ShouldBeTrue)
			So(diff.Death, ShouldNotBeNil)
			So(*diff.Death, ShouldEqual, DeathDefeated)
			So(p.IsDefeated(), ShouldBeTrue)
		})
	})
}

func TestResign(t *testing.T) {
	Convey("Given a live player", t, func() {
		tt := tech.NewTable(nil)
		p := New(identity.New(), 100, baseConfig(tt))

		Convey("Resign records a Resigned death, picked up by the next flush", func() {
			p.Resign()
			diff, ok := p.handle.Flush()
			So(ok, ShouldBeTrue)
			So(*diff.Death, ShouldEqual, DeathResigned)
		})
	})
}

func TestSetProbeTargetAndExplode(t *testing.T) {
	Convey("Given a player whose factory has produced a confirmed probe", t, func() {
		tt := tech.NewTable(nil)
		p := New(identity.New(), 500, baseConfig(tt))
		m := newMap()
		coord := geometry.Coord{X: 9, Y: 9}
		m.Claim(p.ID(), coord, 10)
		p.BuildFactory(coord, m)
		f := p.Factories()[0]
		rng := xrand.New(1)

		// Drive enough ticks to produce and confirm one probe.
		for i := 0; i < 20 && len(f.Probes()) == 0; i++ {
			p.Run(RunContext{Dt: 1.0, Map: m, Rng: rng}, nil)
		}

		Convey("a probe was confirmed with real identity", func() {
			So(len(f.Probes()), ShouldBeGreaterThan, 0)
		})

		Convey("SetProbeTarget on an unknown id is rejected", func() {
			err := p.SetProbeTarget(identity.New(), coord)
			So(err, ShouldNotBeNil)
		})

		Convey("SetProbeTarget on an owned probe succeeds", func() {
			if len(f.Probes()) > 0 {
				id := f.Probes()[0].ID()
				err := p.SetProbeTarget(id, geometry.Coord{X: 10, Y: 10})
				So(err, ShouldBeNil)
			}
		})

		Convey("ExplodeProbe on an owned probe succeeds and kills it", func() {
			if len(f.Probes()) > 0 {
				id := f.Probes()[0].ID()
				err := p.ExplodeProbe(id, m)
				So(err, ShouldBeNil)
			}
		})
	})
}
