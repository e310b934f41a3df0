// Package identity defines the opaque entity identifier used across the
// simulation core. Relationships between entities are expressed by id and
// resolved through lookup, never by pointer (see design notes on avoiding
// back-references).
package identity

import "github.com/google/uuid"

// ID is a 128-bit opaque identifier, globally unique per entity.
type ID uuid.UUID

// NoneID is the reserved sentinel meaning "no identity yet". Go's == still
// reports NoneID equal to itself, so code that must treat it as matching no
// ID checks Valid first: use Valid to test for "has an identity" instead of
// comparing to NoneID.
var NoneID ID

// New generates a fresh, non-None identifier.
func New() ID {
	id := ID(uuid.New())
	if id == NoneID {
		// astronomically unlikely; regenerate rather than ever hand out NoneID
		return New()
	}
	return id
}

// Valid reports whether id carries a real identity (not the sentinel).
func (id ID) Valid() bool {
	return id != NoneID
}

// String renders the identifier for logging/diagnostics.
func (id ID) String() string {
	return uuid.UUID(id).String()
}
