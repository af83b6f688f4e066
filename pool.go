package refslot

import "sync"

// Recycler is a ready-made recycling hook backed by sync.Pool: instead of
// letting a RefBlock's payload become GC-eligible when its counts reach
// zero, it resets the payload and returns the block itself to a free
// list for reuse, avoiding an allocation on the next publish. The block
// (not the bare payload) is the thing worth reusing here — it already
// carries the counters and pool hook wiring.
//
// The payload handed to reset has already been released by its last
// owner: it is dead-but-reusable storage, not a live object that still
// needs quiescing.
type Recycler[T any] struct {
	pool sync.Pool

	// factory allocates a new payload when the pool is empty.
	factory func() *T
	// reset prepares a used payload for reuse. Return false to discard it
	// instead of returning it to the pool (e.g. it grew too large).
	reset func(*T) bool
}

// NewRecycler builds a Recycler. factory allocates a fresh payload;
// reset prepares a retired payload for reuse (or rejects it).
func NewRecycler[T any](factory func() *T, reset func(*T) bool) *Recycler[T] {
	r := &Recycler[T]{factory: factory, reset: reset}
	r.pool.New = func() any {
		block := newRefBlock(factory(), 0, 0)
		block.SetPoolHook(r.hook)
		return block
	}
	return r
}

// Get retrieves a block from the pool (or allocates one), resets its
// counters to (ephemeral=0, refs=1), and wraps it in a fresh
// PinnedHandle. The caller owns the returned handle.
func (r *Recycler[T]) Get() *PinnedHandle[T] {
	block := r.pool.Get().(*RefBlock[T])
	block.Reset(block.payloadPtr(), 0, 1)
	return NewPinnedHandleFromBlock(block)
}

// GetSlot is like Get but installs the block directly into a fresh
// AtomicSlot instead of a PinnedHandle.
func (r *Recycler[T]) GetSlot() *AtomicSlot[T] {
	block := r.pool.Get().(*RefBlock[T])
	block.Reset(block.payloadPtr(), 0, 1)
	s := &AtomicSlot[T]{}
	s.pair.Store(&slotPair[T]{block: block})
	return s
}

// hook is installed as a RefBlock's pool_hook on every block this
// Recycler's pool allocates (see NewRecycler), so release of the last share anywhere in the
// program returns the block here instead of discarding it.
func (r *Recycler[T]) hook(block *RefBlock[T]) {
	payload := block.payloadPtr()
	if payload == nil || !r.reset(payload) {
		return
	}
	r.pool.Put(block)
}

// Wire installs this Recycler as block's pool hook. Blocks handed out by
// Get/GetSlot already carry it, since the pool sets it when it allocates
// them; Wire sets it on any other block a caller holds, folding that
// block into this recycler's free list.
func (r *Recycler[T]) Wire(block *RefBlock[T]) {
	block.SetPoolHook(r.hook)
}
