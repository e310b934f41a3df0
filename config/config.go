// Package config decodes and validates the flat simulation configuration
// record: primitive fields only, and a missing required field is an error
// rather than a silently-applied default. Uses viper for decoding and
// hashicorp/go-multierror to report every missing field at once instead of
// failing on the first.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/ploupy/simcore/internal/tech"
)

// TechEntry is one (price, effect-delta) pair for a named technology, as it
// appears in the configuration source (file/env) before being resolved
// against tech.Tech identifiers.
type TechEntry struct {
	Price float64
	Delta float64
}

// Config is the flat configuration record consumed by simulation.New.
// Validate rejects a zero or negative value in every field except BaseIncome
// and the three maintenance costs, which it does not check: a source that
// omits those loads them as zero without error.
type Config struct {
	DimX, DimY int
	NumPlayers int

	InitialMoney    float64
	InitialNProbes  int
	BaseIncome      float64
	IncomeRate      float64
	BuildingOccMin  int `mapstructure:"building_occupation_min"`
	MaxOccupation   int
	DeprecationRate float64

	FactoryPrice            float64
	FactoryMaxProbe         int
	FactoryExpansionSize    int
	FactoryBuildDelay       float64
	FactoryMaintenanceCosts float64

	ProbeSpeed              float64
	ProbeHP                 int
	ProbeClaimIntensity     int
	ProbeExplosionIntensity int
	ProbePrice              float64
	ProbeClaimDelay         float64
	ProbeMaintenanceCosts   float64

	TurretPrice            float64
	TurretDamage           int
	TurretFireDelay        float64
	TurretScope            float64
	TurretMaintenanceCosts float64

	// TechPrices maps the canonical tech name (tech.Tech.Name()) to its
	// (price, effect-delta) pair. All nine names are required.
	TechPrices map[string]TechEntry
}

// Load decodes a Config from the given viper instance. The instance is
// expected to already have its config file / env bindings set up by the
// caller (host process); Load itself performs no I/O beyond viper.Unmarshal.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	// Keys are snake_case (dim_x, tech_prices, ...): match them against the
	// field names with underscores ignored.
	snakeCase := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.MatchName = func(mapKey, fieldName string) bool {
			return strings.EqualFold(strings.ReplaceAll(mapKey, "_", ""), fieldName)
		}
	})
	if err := v.Unmarshal(&cfg, snakeCase); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// viper lowercases every key, tech_prices entries included; restore the
	// canonical upper-case tech names.
	prices := make(map[string]TechEntry, len(cfg.TechPrices))
	for name, entry := range cfg.TechPrices {
		prices[strings.ToUpper(name)] = entry
	}
	cfg.TechPrices = prices
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every required field left unset, aggregated via
// go-multierror so a caller sees the whole list of problems in one pass.
func (c *Config) Validate() error {
	var errs error

	req := func(ok bool, field string) {
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("missing required config field: %s", field))
		}
	}

	req(c.DimX > 0, "dim_x")
	req(c.DimY > 0, "dim_y")
	req(c.NumPlayers > 0, "num_players")
	req(c.InitialMoney > 0, "initial_money")
	req(c.InitialNProbes > 0, "initial_n_probes")
	req(c.IncomeRate > 0, "income_rate")
	req(c.BuildingOccMin > 0, "building_occupation_min")
	req(c.MaxOccupation > 0, "max_occupation")
	req(c.DeprecationRate > 0, "deprecation_rate")

	req(c.FactoryPrice > 0, "factory_price")
	req(c.FactoryMaxProbe > 0, "factory_max_probe")
	req(c.FactoryExpansionSize > 0, "factory_expansion_size")
	req(c.FactoryBuildDelay > 0, "factory_build_delay")

	req(c.ProbeSpeed > 0, "probe_speed")
	req(c.ProbeHP > 0, "probe_hp")
	req(c.ProbeClaimIntensity > 0, "probe_claim_intensity")
	req(c.ProbeExplosionIntensity > 0, "probe_explosion_intensity")
	req(c.ProbePrice > 0, "probe_price")
	req(c.ProbeClaimDelay > 0, "probe_claim_delay")

	req(c.TurretPrice > 0, "turret_price")
	req(c.TurretDamage > 0, "turret_damage")
	req(c.TurretFireDelay > 0, "turret_fire_delay")
	req(c.TurretScope > 0, "turret_scope")

	for _, t := range tech.All() {
		if _, ok := c.TechPrices[t.Name()]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("missing required config field: tech_prices.%s", t.Name()))
		}
	}

	return errs
}

// TechTable builds the resolved tech.Table from the validated TechPrices.
func (c *Config) TechTable() *tech.Table {
	effects := make(map[tech.Tech]tech.Effect, len(c.TechPrices))
	for _, t := range tech.All() {
		entry := c.TechPrices[t.Name()]
		effects[t] = tech.Effect{Price: entry.Price, Delta: entry.Delta}
	}
	return tech.NewTable(effects)
}
