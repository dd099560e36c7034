package hlc

import (
	"testing"
	"time"
)

func TestHLC_New(t *testing.T) {
	clock := New()
	if clock.Now() == 0 {
		t.Fatal("新时钟的初始时间应大于 0")
	}
}

func TestHLC_Monotonicity(t *testing.T) {
	clock := New()
	t1 := clock.Now()
	t2 := clock.Now()

	if t2 <= t1 {
		t.Errorf("时钟非单调递增: t1=%d, t2=%d", t1, t2)
	}

	p1, l1 := Physical(t1), Logical(t1)
	p2, l2 := Physical(t2), Logical(t2)

	if p2 < p1 {
		t.Errorf("物理时间倒退")
	}
	if p2 == p1 && l2 <= l1 {
		t.Errorf("同一毫秒内的逻辑时间未增加")
	}
}

func TestHLC_FrozenPhysicalSource(t *testing.T) {
	clock := New(WithPhysicalSource(func() int64 { return 100 }))

	t1 := clock.Now()
	t2 := clock.Now()
	if Physical(t1) != 100 || Logical(t1) != 0 {
		t.Fatalf("unexpected first timestamp: phys=%d logical=%d", Physical(t1), Logical(t1))
	}
	if Physical(t2) != 100 || Logical(t2) != 1 {
		t.Fatalf("unexpected second timestamp: phys=%d logical=%d", Physical(t2), Logical(t2))
	}
}

func TestHLC_Observe(t *testing.T) {
	clock := New()

	// 模拟接收到来自未来的消息
	futurePhys := uint64(time.Now().Add(1 * time.Hour).UnixMilli())
	remoteTs := futurePhys << logicalBits

	clock.Observe(remoteTs)

	now := clock.Now()
	if now <= remoteTs {
		t.Errorf("时钟未追上将来时间。Got %d, want > %d", now, remoteTs)
	}
}

func TestHLC_Causality(t *testing.T) {
	clockA := New()
	tsA := clockA.Now()

	clockB := New()
	clockB.Observe(tsA)

	if tsB := clockB.Now(); tsB <= tsA {
		t.Errorf("违反因果关系: tsB (%d) <= tsA (%d)", tsB, tsA)
	}
}

func TestLogicalRollover(t *testing.T) {
	ts := pack(100, logicalMask+1)
	if Physical(ts) != 101 || Logical(ts) != 0 {
		t.Fatalf("expected carry into physical part, got phys=%d logical=%d", Physical(ts), Logical(ts))
	}
}
