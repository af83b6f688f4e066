package refslot

// PinnedHandle is a single-goroutine-owned handle holding exactly one
// durable share on a RefBlock. It is the only way to dereference a shared
// payload: by construction, a non-empty PinnedHandle guarantees its block
// cannot be destroyed while the handle exists.
//
// A PinnedHandle must not be used concurrently from more than one
// goroutine. Copying it (via Clone) acquires a new share; moving it (Go
// has no move semantics, so callers pass it by value/assign and must stop
// using the source) transfers the existing share without touching counts.
type PinnedHandle[T any] struct {
	block *RefBlock[T]
}

// NewPinnedHandle wraps a fresh payload in a new RefBlock with counters
// (ephemeral=0, refs=1) — the handle's own durable share. Passing a nil
// payload yields an empty handle.
//
// Every PinnedHandle-owned share, however obtained (direct construction,
// Clone, or AtomicSlot.Pin), is accounted in the block's refs field. The
// block's ephemeral field is reserved solely for the transient handoff
// AtomicSlot uses when a slot is torn down while a Pin is still in
// flight (see slot.go); unifying all handle shares onto refs avoids a
// PinnedHandle needing to remember which convention produced it.
func NewPinnedHandle[T any](payload *T) *PinnedHandle[T] {
	if payload == nil {
		return &PinnedHandle[T]{}
	}
	return &PinnedHandle[T]{block: newRefBlock(payload, 0, 1)}
}

// NewPinnedHandleFromBlock installs an already-reset block (counts
// (0,1), set by the caller via RefBlock.Reset) into a new handle without
// allocating. Used by recycling pools to hand back a reused block.
func NewPinnedHandleFromBlock[T any](block *RefBlock[T]) *PinnedHandle[T] {
	return &PinnedHandle[T]{block: block}
}

// Clone returns a new handle sharing the same block, acquiring one more
// refs unit.
func (h *PinnedHandle[T]) Clone() *PinnedHandle[T] {
	if h.block == nil {
		return &PinnedHandle[T]{}
	}
	h.block.adjust(0, 1)
	return &PinnedHandle[T]{block: h.block}
}

// Release drops the handle's share. If that drives the block's pair to
// zero, the block is destroyed or recycled on this goroutine. After
// Release, h is empty and must not be dereferenced again.
func (h *PinnedHandle[T]) Release() {
	if h.block == nil {
		return
	}
	h.block.release(0, -1)
	h.block = nil
}

// Empty reports whether the handle holds no block.
func (h *PinnedHandle[T]) Empty() bool {
	return h.block == nil
}

// Payload dereferences the handle. ok is false iff the handle is empty;
// callers that have already established non-emptiness may use
// MustPayload instead.
func (h *PinnedHandle[T]) Payload() (p *T, ok bool) {
	if h.block == nil {
		return nil, false
	}
	return h.block.payloadPtr(), true
}

// MustPayload dereferences the handle, panicking if it is empty.
func (h *PinnedHandle[T]) MustPayload() *T {
	p, ok := h.Payload()
	if !ok {
		panic("refslot: MustPayload on empty PinnedHandle")
	}
	return p
}

// Assign replaces h's block with other's, releasing whatever h held
// before. Non-atomic: the caller must own h exclusively. other is left
// empty, matching move semantics: the source no longer references the
// block it handed off.
func (h *PinnedHandle[T]) Assign(other *PinnedHandle[T]) {
	old := h.block
	h.block = other.block
	other.block = nil
	if old != nil {
		old.release(0, -1)
	}
}

// Equal reports whether h and other reference the same block (pointer
// identity), including both being empty.
func (h *PinnedHandle[T]) Equal(other *PinnedHandle[T]) bool {
	return h.block == other.block
}

// EqualSlot compares h's block against the block currently observable
// from slot, without pinning. This is advisory: it races with concurrent
// mutation of slot and is meaningful only when both sides are known
// quiescent by the caller.
func (h *PinnedHandle[T]) EqualSlot(slot *AtomicSlot[T]) bool {
	return h.block == slot.peekBlock()
}

// PoolHook returns the recycling hook installed on h's block, or nil for
// an empty handle.
func (h *PinnedHandle[T]) PoolHook() func(*RefBlock[T]) {
	if h.block == nil {
		return nil
	}
	return h.block.PoolHook()
}

// SetPoolHook installs a recycling hook on h's block. No-op on an empty
// handle.
func (h *PinnedHandle[T]) SetPoolHook(hook func(*RefBlock[T])) {
	if h.block == nil {
		return
	}
	h.block.SetPoolHook(hook)
}

// block identity accessor used internally by AtomicSlot's constructors
// and CAS.
func (h *PinnedHandle[T]) blockPtr() *RefBlock[T] {
	return h.block
}

// DebugPeekRefs reports the current durable refs count of h's block, or 0
// for an empty handle. For tests and diagnostics only: the value may be
// stale the instant it's returned under concurrent use.
func (h *PinnedHandle[T]) DebugPeekRefs() int64 {
	if h.block == nil {
		return 0
	}
	_, refs := h.block.counts()
	return refs
}
