package main

import (
	"errors"
	"testing"

	"github.com/shinyes/yep_text/pkg/document"
	"github.com/shinyes/yep_text/pkg/store"
)

func openReplicas(t *testing.T, names ...string) []*replica {
	t.Helper()
	stores := store.NewMultiStore(t.TempDir())
	t.Cleanup(func() {
		if err := stores.CloseAll(); err != nil {
			t.Errorf("CloseAll failed: %v", err)
		}
	})

	replicas := make([]*replica, 0, len(names))
	for _, name := range names {
		r, err := openReplica(stores, name, "doc")
		if err != nil {
			t.Fatalf("openReplica(%s) failed: %v", name, err)
		}
		replicas = append(replicas, r)
	}
	return replicas
}

func mustPush(t *testing.T, from, to *replica) {
	t.Helper()
	if _, err := from.pushTo(to); err != nil {
		t.Fatalf("pushTo %s -> %s failed: %v", from.name, to.name, err)
	}
}

func TestReplica_PushPersistsAppliedPrefix(t *testing.T) {
	rs := openReplicas(t, "a", "b", "c")
	a, b, c := rs[0], rs[1], rs[2]

	if err := createElements(a); err != nil {
		t.Fatalf("createElements failed: %v", err)
	}
	mustPush(t, a, b)
	mustPush(t, a, c)

	// b 的第一个 Change 只存在于快照中，c 永远拿不到
	if err := increaseCounter(b, 1); err != nil {
		t.Fatalf("increaseCounter failed: %v", err)
	}
	if err := b.snapshot(); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	if err := increaseCounter(a, 2); err != nil {
		t.Fatalf("increaseCounter failed: %v", err)
	}
	mustPush(t, a, b)
	if err := increaseCounter(b, 3); err != nil {
		t.Fatalf("increaseCounter failed: %v", err)
	}

	n, err := b.pushTo(c)
	if !errors.Is(err, document.ErrChangeOutOfOrder) {
		t.Fatalf("Expected ErrChangeOutOfOrder, got %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 applied change, got %d", n)
	}

	// a 的第二个 Change 已经应用，也必须已经写入 c 的日志
	logged, _, err := c.log.LoadSince("doc", 0)
	if err != nil {
		t.Fatalf("LoadSince failed: %v", err)
	}
	if len(logged) != 2 {
		t.Fatalf("Expected 2 logged changes, got %d", len(logged))
	}
	if got := logged[1].ID(); got.ActorID() != a.doc.ActorID() || got.ClientSeq() != 2 {
		t.Fatalf("unexpected last logged change %s", got)
	}
	if v, err := c.doc.Counter(counterKey); err != nil || v.Int() != 2 {
		t.Fatalf("Expected counter 2, got %v (%v)", v, err)
	}

	// c 重新从日志恢复后与之前一致
	restored := document.New("doc", c.doc.ActorID())
	if err := restored.ApplyChanges(logged...); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if restored.Marshal() != c.doc.Marshal() {
		t.Fatalf("Expected %s, got %s", c.doc.Marshal(), restored.Marshal())
	}
}
