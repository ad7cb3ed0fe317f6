package index

import "sync/atomic"

// Holder publishes the current Schema. Readers always see a complete
// snapshot; Swap replaces it wholesale.
type Holder struct {
	cur atomic.Pointer[Schema]
}

// NewHolder creates a holder publishing s.
func NewHolder(s *Schema) *Holder {
	h := &Holder{}
	h.cur.Store(s)
	return h
}

// Current returns the live snapshot, or nil before the first load.
func (h *Holder) Current() *Schema { return h.cur.Load() }

// Swap publishes s and returns the previous snapshot.
func (h *Holder) Swap(s *Schema) *Schema { return h.cur.Swap(s) }
