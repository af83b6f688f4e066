package refslot

import "sync/atomic"

// slotPair is the (ephOut, block) pair an AtomicSlot publishes. Like
// blockPair, it is always replaced as a whole, via atomic.Pointer, which
// is this module's substitute for the platform's wide compare-and-swap.
type slotPair[T any] struct {
	ephOut int64
	block  *RefBlock[T]
}

// AtomicSlot is the only sharing medium across goroutines: every
// cross-goroutine publication of a RefBlock goes through one of these.
// It holds a pointer to a RefBlock together with an ephOut field that
// tracks reservations handed out by Pin that have not yet been migrated
// into the block's own refs count (see blockPair and the handoff in
// Close/Pin below).
//
// The zero value is an empty slot (no block). AtomicSlot must not be
// copied after first use; construct and share it by pointer.
type AtomicSlot[T any] struct {
	pair atomic.Pointer[slotPair[T]]
}

func emptySlotPair[T any]() *slotPair[T] {
	return &slotPair[T]{}
}

// pairEph and pairBlock read a possibly-nil *slotPair[T] as the empty pair
// it's equivalent to. A zero-value AtomicSlot has never Stored anything,
// so its pair.Load() returns a literal nil rather than emptySlotPair; both
// mean the same thing and every read site must treat them alike, while
// CompareAndSwap still needs the literal (possibly nil) loaded pointer as
// its comparand.
func pairEph[T any](p *slotPair[T]) int64 {
	if p == nil {
		return 0
	}
	return p.ephOut
}

func pairBlock[T any](p *slotPair[T]) *RefBlock[T] {
	if p == nil {
		return nil
	}
	return p.block
}

// NewAtomicSlot wraps a fresh payload in a new RefBlock initialized
// (ephemeral=0, refs=1) — the slot's own durable share — and installs it.
// A nil payload produces an empty slot.
func NewAtomicSlot[T any](payload *T) *AtomicSlot[T] {
	s := &AtomicSlot[T]{}
	if payload == nil {
		s.pair.Store(emptySlotPair[T]())
		return s
	}
	s.pair.Store(&slotPair[T]{block: newRefBlock(payload, 0, 1)})
	return s
}

// NewAtomicSlotFromHandle copies the block referenced by h and acquires
// one additional refs share for the new slot; h is left unchanged and
// keeps its own share.
func NewAtomicSlotFromHandle[T any](h *PinnedHandle[T]) *AtomicSlot[T] {
	s := &AtomicSlot[T]{}
	block := h.blockPtr()
	if block == nil {
		s.pair.Store(emptySlotPair[T]())
		return s
	}
	block.adjust(0, 1)
	s.pair.Store(&slotPair[T]{block: block})
	return s
}

// NewAtomicSlotFromSlot snapshots src and durably owns the result: it
// pins src (see Pin) and repurposes the refs share that pin produces as
// the new slot's own share, instead of wrapping it in a PinnedHandle.
func NewAtomicSlotFromSlot[T any](src *AtomicSlot[T]) *AtomicSlot[T] {
	s := &AtomicSlot[T]{}
	h := src.Pin()
	block := h.blockPtr()
	if block == nil {
		s.pair.Store(emptySlotPair[T]())
		return s
	}
	s.pair.Store(&slotPair[T]{block: block})
	h.block = nil // ownership of h's refs share transferred to s, not released
	return s
}

// Close destructs the slot: if it holds a block, any reservations still
// owed (ephOut) are handed back to the block's ephemeral field and the
// slot's own refs share is released, in one full-barrier swap. If that
// drives the block's pair to zero, the block is destroyed or recycled
// on this goroutine. After Close, the slot is empty.
func (s *AtomicSlot[T]) Close() {
	old := s.pair.Swap(emptySlotPair[T]())
	if block := pairBlock(old); block != nil {
		block.release(pairEph(old), -1)
	}
}

// peekBlock returns the block currently observable from the slot without
// pinning. Used only by the advisory PinnedHandle.EqualSlot comparator.
func (s *AtomicSlot[T]) peekBlock() *RefBlock[T] {
	return pairBlock(s.pair.Load())
}

// swap exchanges s's pair with local's. It is atomic on s's side; local
// is assumed goroutine-local and not concurrently accessed, leaving CAS
// as the only publicly atomic-on-both-sides mutator.
func (s *AtomicSlot[T]) swap(local *AtomicSlot[T]) {
	incoming := local.pair.Load()
	old := s.pair.Swap(incoming)
	local.pair.Store(old)
}

// Store replaces the slot's contents with a fresh payload, releasing
// whatever was previously installed (on this goroutine, once any
// outstanding pins finish migrating — see Close). Safe to call
// concurrently with Pin, CAS, and other Store/StoreHandle calls on the
// same slot: each call swaps through its own private temporary, and the
// swap is atomic on s's side.
func (s *AtomicSlot[T]) Store(payload *T) {
	tmp := NewAtomicSlot(payload)
	s.swap(tmp)
	tmp.Close()
}

// StoreHandle replaces the slot's contents with a copy of h's block.
func (s *AtomicSlot[T]) StoreHandle(h *PinnedHandle[T]) {
	tmp := NewAtomicSlotFromHandle(h)
	s.swap(tmp)
	tmp.Close()
}

// Pin reads the slot and produces a PinnedHandle the caller now durably
// owns, without ever touching the block's counters before a share is
// safely reserved. The algorithm:
//
//  1. CAS-loop increment ephOut by 1, capturing the current block in the
//     same atomic step (no separate dependent load is needed: in this
//     module's wide-CAS substitute, ephOut and block are one immutable
//     value, so there is no window where the block read and the
//     reservation could observe different generations).
//  2. If the observed block is nil, the slot is empty: return an empty
//     handle without ever reserving or migrating a share.
//  3. Migrate: block.adjust(0, +1) — the new handle's durable share.
//  4. Best-effort give-back: while the slot still shows the same block
//     identity, CAS ephOut back down by one; this is the common case,
//     and leaves the block's ephemeral field untouched at 0 throughout.
//     If the block identity has since changed (the slot was closed or
//     CAS'd away while we were between steps 1 and 4), the closing
//     goroutine already folded our still-outstanding reservation into
//     the block's ephemeral field via its own handoff (see Close) —
//     redundantly, since we had already completed step 3 independently.
//     We cancel that one redundant unit with block.adjust(-1, 0), which
//     is safe regardless of whether the handoff ran before or after our
//     migrate: either ordering leaves exactly one phantom ephemeral unit
//     for us to retire.
func (s *AtomicSlot[T]) Pin() *PinnedHandle[T] {
	var block *RefBlock[T]
	for {
		old := s.pair.Load()
		curBlock := pairBlock(old)
		if curBlock == nil {
			return &PinnedHandle[T]{}
		}
		next := &slotPair[T]{ephOut: pairEph(old) + 1, block: curBlock}
		if s.pair.CompareAndSwap(old, next) {
			block = next.block
			break
		}
	}

	block.adjust(0, 1)

	for {
		cur := s.pair.Load()
		if pairBlock(cur) != block {
			block.adjust(-1, 0)
			break
		}
		next := &slotPair[T]{ephOut: pairEph(cur) - 1, block: block}
		if s.pair.CompareAndSwap(cur, next) {
			break
		}
	}

	return &PinnedHandle[T]{block: block}
}

// CAS attempts to replace the slot's pair so that its block equals
// expected's block, installing desired's pair in its place. The ephOut
// value compared is whatever the slot currently holds — ephOut is
// opaque bookkeeping, never supplied by the caller. Loops while the
// block identity still matches expected (retrying through ephOut churn
// from concurrent Pins); exits false the instant the block identity no
// longer matches.
//
// On success, the slot's previous pair moves into desired (the caller
// must eventually Close desired to release it) and CAS returns true. On
// failure, desired is left untouched and CAS returns false.
func (s *AtomicSlot[T]) CAS(expected *PinnedHandle[T], desired *AtomicSlot[T]) bool {
	expectedBlock := expected.blockPtr()
	for {
		old := s.pair.Load()
		if pairBlock(old) != expectedBlock {
			return false
		}
		next := desired.pair.Load()
		if s.pair.CompareAndSwap(old, next) {
			desired.pair.Store(old)
			return true
		}
	}
}
