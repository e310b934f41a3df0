// Package enginelog wires the simulation core's log site (attack-target
// search exhaustion) and the host driver's logging to zerolog.
package enginelog

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the package-level logger used by the engine. It defaults to a
// discard writer so embedding a Game without configuring logging never
// produces unwanted output; callers assign it (or use SetOutput) during
// host wiring.
var Logger = zerolog.New(io.Discard)

// SetOutput redirects engine logging to w, keeping the default level.
func SetOutput(w io.Writer) {
	Logger = zerolog.New(w).With().Timestamp().Logger()
}
