package refslot

import "testing"

func TestRefBlockAdjustZeroTransition(t *testing.T) {
	payload := 42
	b := newRefBlock(&payload, 0, 1)

	if zero := b.adjust(0, 0); zero {
		t.Fatalf("adjust(0,0) on (0,1) reported zero")
	}
	if eph, refs := b.counts(); eph != 0 || refs != 1 {
		t.Fatalf("counts = (%d,%d), want (0,1)", eph, refs)
	}

	if zero := b.adjust(0, -1); !zero {
		t.Fatalf("adjust(0,-1) on (0,1) should report zero transition")
	}
}

func TestRefBlockDestroyOrRecycleRunsOnce(t *testing.T) {
	payload := "hello"
	b := newRefBlock(&payload, 0, 1)

	calls := 0
	b.SetPoolHook(func(*RefBlock[string]) { calls++ })

	b.release(0, -1)

	if calls != 1 {
		t.Fatalf("pool hook called %d times, want 1", calls)
	}
}

func TestRefBlockWithoutPoolHookDropsPayload(t *testing.T) {
	payload := 7
	b := newRefBlock(&payload, 0, 1)

	b.release(0, -1)

	if p := b.payloadPtr(); p != nil {
		t.Fatalf("payload not dropped after zero transition without pool hook")
	}
}

func TestRefBlockResetForRecycling(t *testing.T) {
	payload := 1
	b := newRefBlock(&payload, 0, 1)
	b.release(0, -1) // drops payload, no hook installed

	fresh := 2
	b.Reset(&fresh, 0, 1)

	if eph, refs := b.counts(); eph != 0 || refs != 1 {
		t.Fatalf("counts after Reset = (%d,%d), want (0,1)", eph, refs)
	}
	if p := b.payloadPtr(); p == nil || *p != 2 {
		t.Fatalf("payload after Reset = %v, want 2", p)
	}
}
