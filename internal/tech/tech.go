// Package tech defines the small technology tree: nine enum values split
// into three mutually-exclusive categories (probe, factory, turret), each
// configured with a (price, effect-delta) pair supplied at construction
// time from the engine Config record.
package tech

// Tech is one of the nine technology identifiers.
type Tech uint8

const (
	ProbeHP Tech = iota
	ProbeClaimIntensity
	ProbeExplosionIntensity
	FactoryMaxProbe
	FactoryBuildDelay
	FactoryProbePrice
	TurretScope
	TurretFireDelay
	TurretMaintenanceCosts
	numTechs
)

// Category partitions the tree; techs in the same category are pairwise
// mutually exclusive.
type Category uint8

const (
	CategoryProbe Category = iota
	CategoryFactory
	CategoryTurret
)

var names = map[Tech]string{
	ProbeHP:                 "PROBE_HP",
	ProbeClaimIntensity:     "PROBE_CLAIM_INTENSITY",
	ProbeExplosionIntensity: "PROBE_EXPLOSION_INTENSITY",
	FactoryMaxProbe:         "FACTORY_MAX_PROBE",
	FactoryBuildDelay:       "FACTORY_BUILD_DELAY",
	FactoryProbePrice:       "FACTORY_PROBE_PRICE",
	TurretScope:             "TURRET_SCOPE",
	TurretFireDelay:         "TURRET_FIRE_DELAY",
	TurretMaintenanceCosts:  "TURRET_MAINTENANCE_COSTS",
}

var categories = map[Tech]Category{
	ProbeHP:                 CategoryProbe,
	ProbeClaimIntensity:     CategoryProbe,
	ProbeExplosionIntensity: CategoryProbe,
	FactoryMaxProbe:         CategoryFactory,
	FactoryBuildDelay:       CategoryFactory,
	FactoryProbePrice:       CategoryFactory,
	TurretScope:             CategoryTurret,
	TurretFireDelay:         CategoryTurret,
	TurretMaintenanceCosts:  CategoryTurret,
}

// Name returns the canonical string identifier used by acquire_tech.
func (t Tech) Name() string {
	return names[t]
}

// CategoryOf returns the mutual-exclusion category of t.
func (t Tech) CategoryOf() Category {
	return categories[t]
}

// ByName resolves a canonical tech name, reporting ok=false for unknown
// names (the invalid-tech-name action rejection).
func ByName(name string) (Tech, bool) {
	for t, n := range names {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// All returns every tech identifier, in stable declaration order.
func All() []Tech {
	out := make([]Tech, 0, numTechs)
	for t := Tech(0); t < numTechs; t++ {
		out = append(out, t)
	}
	return out
}

// Effect is the (price, effect-delta) pair configured per technology.
type Effect struct {
	Price float64
	Delta float64
}

// Table holds the configured effect of each technology.
type Table struct {
	effects map[Tech]Effect
}

// NewTable builds a Table from a price/delta map; techs absent from effects
// are treated as having a zero price and zero effect delta.
func NewTable(effects map[Tech]Effect) *Table {
	return &Table{effects: effects}
}

// Price returns the acquisition price of t.
func (tb *Table) Price(t Tech) float64 {
	return tb.effects[t].Price
}

// Delta returns the effect delta of t (bonus/decrease applied when owned).
func (tb *Table) Delta(t Tech) float64 {
	return tb.effects[t].Delta
}

// Set is an owned collection of technologies with category-exclusion
// lookups.
type Set map[Tech]struct{}

// NewSet creates an empty tech set.
func NewSet() Set {
	return make(Set)
}

// Has reports whether t is owned.
func (s Set) Has(t Tech) bool {
	_, ok := s[t]
	return ok
}

// Add inserts t.
func (s Set) Add(t Tech) {
	s[t] = struct{}{}
}

// ConflictsWith reports whether s already owns a tech in the same category
// as t (other than t itself).
func (s Set) ConflictsWith(t Tech) bool {
	cat := t.CategoryOf()
	for owned := range s {
		if owned != t && owned.CategoryOf() == cat {
			return true
		}
	}
	return false
}

// List returns the owned techs in a stable order (by declaration), for
// snapshotting into state records.
func (s Set) List() []Tech {
	out := make([]Tech, 0, len(s))
	for _, t := range All() {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}
