// Package state implements the incremental state-diff engine: the
// compositional protocol by which every entity gradually builds a partial
// state during a frame, merges sub-entity diffs upward, and emits at most
// one diff per entity per frame.
package state

import "github.com/ploupy/simcore/internal/identity"

// Handle is a generic incremental-diff accumulator. It holds one instance
// of T plus a dirty flag. Read does not dirty; Write and Merge do.
type Handle[T any] struct {
	blank func() T
	merge func(dst *T, src T)
	cur   T
	dirty bool
}

// NewHandle creates a Handle. blank produces a fresh, empty T (carrying
// whatever identity metadata the kind needs); merge applies src into dst
// in place.
func NewHandle[T any](blank func() T, merge func(dst *T, src T)) *Handle[T] {
	return &Handle[T]{blank: blank, merge: merge, cur: blank()}
}

// Read returns an immutable view of the held state. Does not dirty.
func (h *Handle[T]) Read() T {
	return h.cur
}

// Write returns a mutable view of the held state and dirties the handle.
func (h *Handle[T]) Write() *T {
	h.dirty = true
	return &h.cur
}

// Merge applies other into the held state and dirties the handle.
func (h *Handle[T]) Merge(other T) {
	h.merge(&h.cur, other)
	h.dirty = true
}

// Flush returns (state, true) if the handle is dirty, resetting the handle
// to a fresh blank state and clearing the flag; otherwise (zero, false).
func (h *Handle[T]) Flush() (T, bool) {
	if !h.dirty {
		var zero T
		return zero, false
	}
	out := h.cur
	h.cur = h.blank()
	h.dirty = false
	return out, true
}

// Identifiable is implemented by every diff/state record so that
// sub-entity lists can be merged by identity.
type Identifiable interface {
	GetID() identity.ID
}

// InsertOrMerge scans list for an entry sharing item's id; if found, merge
// is called to fold item into that entry in place, else item is appended.
// Stable order of first appearance is preserved.
func InsertOrMerge[T Identifiable](list []T, item T, merge func(dst *T, src T)) []T {
	itemID := item.GetID()
	for i := range list {
		if list[i].GetID() == itemID {
			merge(&list[i], item)
			return list
		}
	}
	return append(list, item)
}
