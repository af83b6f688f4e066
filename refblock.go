// Package refslot provides a lock-free, reference-counted shared pointer.
//
// Multiple goroutines may publish, read, swap, and compare-and-swap a
// pointer to a shared heap object while that object is concurrently being
// destroyed or recycled. The design follows a split-count scheme: an
// AtomicSlot carries an ephemeral count alongside its published pointer,
// and the RefBlock behind that pointer carries a durable reference count.
// A reader bumps the ephemeral count atomically with the pointer read,
// then migrates that share into the block's durable count before ever
// touching the payload — closing the classic ABA / use-after-free race of
// a naive atomic-pointer-plus-refcount design.
package refslot

import "sync/atomic"

// blockPair is the (ephemeral, refs) pair from a RefBlock, always swapped
// as a whole via atomic.Pointer.CompareAndSwap. Go has no exposed
// double-word CAS, so an immutable pair value behind atomic.Pointer[T]
// stands in for it: every update replaces the whole pair in one step.
type blockPair struct {
	ephemeral int64
	refs      int64
}

// RefBlock is the indirection object between every handle and a payload.
// It owns the payload, the split ephemeral/refs counters, and an optional
// recycling hook. RefBlock is never used directly by callers; it is
// reached only through PinnedHandle and AtomicSlot.
type RefBlock[T any] struct {
	payload *T

	pair atomic.Pointer[blockPair]

	poolHook atomic.Pointer[func(*RefBlock[T])]
}

// newRefBlock allocates a fresh block with the given initial (ephemeral,
// refs) pair and payload.
func newRefBlock[T any](payload *T, ephemeral, refs int64) *RefBlock[T] {
	b := &RefBlock[T]{payload: payload}
	b.pair.Store(&blockPair{ephemeral: ephemeral, refs: refs})
	return b
}

// Reset re-initializes a block retrieved from a pool. The caller must
// install the result into exactly one PinnedHandle or AtomicSlot, both of
// which expect (ephemeral=0, refs=1), before any other goroutine can
// observe it.
func (b *RefBlock[T]) Reset(payload *T, ephemeral, refs int64) {
	b.payload = payload
	b.pair.Store(&blockPair{ephemeral: ephemeral, refs: refs})
}

// PoolHook returns the block's current recycling hook, or nil.
func (b *RefBlock[T]) PoolHook() func(*RefBlock[T]) {
	if p := b.poolHook.Load(); p != nil {
		return *p
	}
	return nil
}

// SetPoolHook installs a recycling hook, called in lieu of discarding the
// block when its counts reach zero. Passing nil removes the hook.
func (b *RefBlock[T]) SetPoolHook(hook func(*RefBlock[T])) {
	if hook == nil {
		b.poolHook.Store(nil)
		return
	}
	b.poolHook.Store(&hook)
}

// adjust atomically adds deltaEph to ephemeral and deltaRef to refs, via a
// CAS loop over the whole pair, and reports whether the result is (0, 0).
//
// A single CAS covers both the release fence needed when a decrement
// leaves the pair non-zero (so stores made before the drop can't be seen
// to sink past it) and the acquire fence needed when a decrement drives
// the pair to zero (so the destructor's reads can't be hoisted above it):
// atomic.Pointer's CompareAndSwap already provides both, unconditionally.
func (b *RefBlock[T]) adjust(deltaEph, deltaRef int64) (zero bool) {
	for {
		old := b.pair.Load()
		next := &blockPair{
			ephemeral: old.ephemeral + deltaEph,
			refs:      old.refs + deltaRef,
		}
		if b.pair.CompareAndSwap(old, next) {
			return next.ephemeral == 0 && next.refs == 0
		}
	}
}

// payloadPtr returns the block's payload pointer. A plain field read is
// sound here without a separate fence: every caller reaches this point
// only after its own atomic.Pointer CAS or Load on pair (the migrate on
// pin, or the initial publish), and that already establishes the
// happens-before edge the read depends on.
func (b *RefBlock[T]) payloadPtr() *T {
	return b.payload
}

// counts returns a snapshot of (ephemeral, refs). For diagnostics and
// tests only; the values may be stale the instant they're returned.
func (b *RefBlock[T]) counts() (ephemeral, refs int64) {
	p := b.pair.Load()
	return p.ephemeral, p.refs
}

// release performs adjust(deltaEph, deltaRef) and, if that drives the pair
// to zero, destroys or recycles the block. Must be called by the unique
// goroutine that observed the transition; adjust guarantees that.
func (b *RefBlock[T]) release(deltaEph, deltaRef int64) {
	if b.adjust(deltaEph, deltaRef) {
		b.destroyOrRecycle()
	}
}

// destroyOrRecycle runs exactly once per block, on the goroutine that
// drove (ephemeral, refs) to (0, 0). If a pool hook is installed it is
// invoked synchronously in place of discarding the block; otherwise the
// payload is dropped to its zero value so the block becomes GC-eligible.
func (b *RefBlock[T]) destroyOrRecycle() {
	if hook := b.PoolHook(); hook != nil {
		hook(b)
		return
	}
	b.payload = nil
}
