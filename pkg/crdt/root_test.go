package crdt

import (
	"errors"
	"testing"

	"github.com/shinyes/yep_text/pkg/ticket"
)

func TestRoot_SetKeepsNewerElement(t *testing.T) {
	root := NewRoot()
	older := NewText(tk(1, 1), "old")
	newer := NewText(tk(2, 2), "new")

	root.Set("doc", newer)
	if got := root.Set("doc", older); got != newer {
		t.Fatalf("older element should lose, got %s", got.Marshal())
	}
	if older.RemovedAt() == nil {
		t.Fatal("losing element should be marked removed")
	}

	elem, ok := root.Get("doc")
	if !ok || elem != newer {
		t.Fatal("Get should return the newer element")
	}
	if _, ok := root.FindByCreatedAt(tk(1, 1)); !ok {
		t.Fatal("overwritten element should still be addressable")
	}
}

func TestRoot_Marshal(t *testing.T) {
	root := NewRoot()
	root.Set("text", NewText(tk(1, 1), "a\"b"))
	root.Set("count", NewCounter(tk(2, 1), FloatValue(8.5)))

	want := `{"count":8.5,"text":"a\"b"}`
	if got := root.Marshal(); got != want {
		t.Fatalf("Expected %s, got %s", want, got)
	}
}

func TestRoot_GarbageCollect(t *testing.T) {
	root := NewRoot()
	text := NewText(tk(1, 1), "")
	root.Set("text", text)
	localEdit(t, text, 0, 0, "abc", tk(2, 1))
	localEdit(t, text, 0, 1, "", tk(3, 1))

	if root.TombstoneCount() != 1 {
		t.Fatalf("Expected 1 tombstone, got %d", root.TombstoneCount())
	}
	if n := root.GarbageCollect(tk(3, 1)); n != 1 {
		t.Fatalf("Expected 1 collected node, got %d", n)
	}
	if root.TombstoneCount() != 0 {
		t.Fatalf("Expected no tombstones, got %d", root.TombstoneCount())
	}
}

func TestRoot_SnapshotRoundTrip(t *testing.T) {
	root := NewRoot()
	text := NewText(tk(1, 1), "")
	root.Set("text", text)
	root.Set("count", NewCounter(tk(2, 1), IntValue(42)))
	localEdit(t, text, 0, 0, "hello", tk(3, 1))
	localEdit(t, text, 1, 3, "EY", tk(4, 1))

	data, err := EncodeRoot(root)
	if err != nil {
		t.Fatalf("EncodeRoot failed: %v", err)
	}
	decoded, err := DecodeRoot(data)
	if err != nil {
		t.Fatalf("DecodeRoot failed: %v", err)
	}

	if decoded.Marshal() != root.Marshal() {
		t.Fatalf("Expected %s, got %s", root.Marshal(), decoded.Marshal())
	}
	elem, _ := decoded.Get("text")
	decodedText := elem.(*Text)
	if decodedText.AnnotatedString() != text.AnnotatedString() {
		t.Fatalf("structure lost:\n%s\n%s", text.AnnotatedString(), decodedText.AnnotatedString())
	}
	if decodedText.TombstoneCount() != 1 {
		t.Fatalf("Expected 1 tombstone, got %d", decodedText.TombstoneCount())
	}

	// 在切分边界上的远端编辑依赖切分链，解码后同样可用
	pos := NewPos(NewNodeID(tk(3, 1), 0), 3)
	op := editOp{from: pos, to: pos, content: "!", editedAt: tk(5, 2), seen: map[ticket.ActorID]ticket.Ticket{}}
	op.applyTo(t, text)
	op.applyTo(t, decodedText)
	assertConverged(t, "hEY!lo", text, decodedText)
}

func TestDecodeRoot_InvalidData(t *testing.T) {
	_, err := DecodeRoot([]byte{0xc1})
	if !errors.Is(err, ErrInvalidData) {
		t.Fatalf("Expected ErrInvalidData, got %v", err)
	}
	var dataErr *InvalidDataError
	if !errors.As(err, &dataErr) || dataErr.DataLength != 1 {
		t.Fatalf("Expected InvalidDataError with length 1, got %v", err)
	}
}
