// Command simserver is a thin headless driver for the simulation core: it
// loads a Config, constructs a Game, and runs it at a fixed tick rate,
// logging the diff stream instead of rendering it.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ploupy/simcore/config"
	"github.com/ploupy/simcore/internal/enginelog"
	"github.com/ploupy/simcore/internal/identity"
	"github.com/ploupy/simcore/internal/simulation"
	"github.com/ploupy/simcore/internal/xrand"
)

const tickRate = 20.0

func main() {
	configPath := flag.String("config", "simconfig.yaml", "path to the simulation config file")
	seed := flag.Int64("seed", 1, "pseudorandom seed")
	ticks := flag.Int("ticks", 200, "number of ticks to run before exiting")
	verbose := flag.Bool("v", false, "log at debug level")
	flag.Parse()

	enginelog.SetOutput(os.Stdout)
	if *verbose {
		enginelog.Logger = enginelog.Logger.Level(zerolog.DebugLevel)
	} else {
		enginelog.Logger = enginelog.Logger.Level(zerolog.InfoLevel)
	}

	v := viper.New()
	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		enginelog.Logger.Fatal().Err(err).Str("path", *configPath).Msg("read config")
	}

	cfg, err := config.Load(v)
	if err != nil {
		enginelog.Logger.Fatal().Err(err).Msg("load config")
	}

	playerIDs := make([]identity.ID, cfg.NumPlayers)
	for i := range playerIDs {
		playerIDs[i] = identity.New()
	}

	rng := xrand.New(*seed)
	game := simulation.New(playerIDs, cfg, rng)

	dt := 1.0 / tickRate
	start := time.Now()
	for tick := 0; tick < *ticks; tick++ {
		diff, changed := game.Run(dt)
		if !changed {
			continue
		}
		enginelog.Logger.Debug().
			Int("tick", tick).
			Int("players_touched", len(diff.Players)).
			Int("tiles_touched", len(diff.Tiles)).
			Bool("ended", diff.Ended != nil && *diff.Ended).
			Msg("tick diff")
		if diff.Ended != nil && *diff.Ended {
			enginelog.Logger.Info().Int("tick", tick).Msg("game ended")
			break
		}
	}

	enginelog.Logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("ticks", *ticks).
		Msg("simulation run complete")
}
