package refslot_test

import (
	"testing"

	"github.com/gdkar/refslot"
)

func TestPinnedHandleEmpty(t *testing.T) {
	var h refslot.PinnedHandle[int]
	if !h.Empty() {
		t.Fatalf("zero-value handle should be empty")
	}
	if _, ok := h.Payload(); ok {
		t.Fatalf("Payload on empty handle returned ok=true")
	}
}

func TestPinnedHandleLifecycle(t *testing.T) {
	n := 10
	h := refslot.NewPinnedHandle(&n)
	if h.Empty() {
		t.Fatalf("handle constructed from non-nil payload is empty")
	}

	p, ok := h.Payload()
	if !ok || *p != 10 {
		t.Fatalf("Payload() = (%v, %v), want (10, true)", p, ok)
	}

	destroyed := false
	h.SetPoolHook(func(*refslot.RefBlock[int]) { destroyed = true })

	clone := h.Clone()
	if !clone.Equal(h) {
		t.Fatalf("clone should reference the same block as the original")
	}

	h.Release()
	if destroyed {
		t.Fatalf("block destroyed while clone is still live")
	}

	clone.Release()
	if !destroyed {
		t.Fatalf("block not destroyed after last handle released")
	}
}

func TestPinnedHandleMustPayloadPanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("MustPayload on empty handle should panic")
		}
	}()
	var h refslot.PinnedHandle[int]
	h.MustPayload()
}

func TestPinnedHandleAssign(t *testing.T) {
	a := 1
	b := 2
	h := refslot.NewPinnedHandle(&a)
	other := refslot.NewPinnedHandle(&b)

	aDestroyed := false
	h.SetPoolHook(func(*refslot.RefBlock[int]) { aDestroyed = true })

	h.Assign(other)

	if !other.Empty() {
		t.Fatalf("Assign should leave the source handle empty")
	}
	if !aDestroyed {
		t.Fatalf("Assign should release the previous block")
	}
	p, ok := h.Payload()
	if !ok || *p != 2 {
		t.Fatalf("h.Payload() after Assign = (%v,%v), want (2,true)", p, ok)
	}
}

func TestPinnedHandleEqual(t *testing.T) {
	n := 1
	h1 := refslot.NewPinnedHandle(&n)
	h2 := h1.Clone()
	defer h1.Release()
	defer h2.Release()

	other := refslot.NewPinnedHandle(&n)
	defer other.Release()

	if !h1.Equal(h2) {
		t.Fatalf("clones of the same handle should compare equal")
	}
	if h1.Equal(other) {
		t.Fatalf("handles over distinct blocks should not compare equal")
	}
}
