package operations

import (
	"errors"
	"testing"

	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/ticket"
)

func actorOf(b byte) ticket.ActorID {
	var id ticket.ActorID
	id[15] = b
	return id
}

func tk(lamport uint64, actor byte) ticket.Ticket {
	return ticket.New(lamport, actorOf(actor), 0)
}

// roundTrip 经过编码再执行，模拟远端收到的操作。
func roundTrip(t *testing.T, op Operation) Operation {
	t.Helper()
	data, err := Encode(op)
	if err != nil {
		t.Fatalf("Encode(%T) failed: %v", op, err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(%T) failed: %v", op, err)
	}
	if decoded.ExecutedAt() != op.ExecutedAt() {
		t.Fatalf("ExecutedAt changed: %s -> %s", op.ExecutedAt(), decoded.ExecutedAt())
	}
	return decoded
}

func execute(t *testing.T, root *crdt.Root, op Operation) {
	t.Helper()
	if err := op.Execute(root); err != nil {
		t.Fatalf("Execute(%T) failed: %v", op, err)
	}
}

func textOf(t *testing.T, root *crdt.Root, key string) *crdt.Text {
	t.Helper()
	elem, ok := root.Get(key)
	if !ok {
		t.Fatalf("key %q not found", key)
	}
	return elem.(*crdt.Text)
}

func TestOperations_ReplayOnAnotherReplica(t *testing.T) {
	local := crdt.NewRoot()
	remote := crdt.NewRoot()

	set := NewSetText("text", "", tk(1, 1))
	execute(t, local, set)
	execute(t, remote, roundTrip(t, set))

	text := textOf(t, local, "text")
	from, to, _ := text.CreateRange(0, 0)
	seen, err := text.EditInternal(from, to, "hello", tk(2, 1), nil)
	if err != nil {
		t.Fatalf("EditInternal failed: %v", err)
	}
	execute(t, remote, roundTrip(t, NewEdit(text.CreatedAt(), from, to, seen, "hello", tk(2, 1))))

	from, to, _ = text.CreateRange(1, 4)
	seen, err = text.EditInternal(from, to, "ipp", tk(3, 1), nil)
	if err != nil {
		t.Fatalf("EditInternal failed: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("Expected seen map for one actor, got %v", seen)
	}
	execute(t, remote, roundTrip(t, NewEdit(text.CreatedAt(), from, to, seen, "ipp", tk(3, 1))))

	remoteText := textOf(t, remote, "text")
	if remoteText.String() != "hippo" {
		t.Fatalf("Expected hippo, got %q", remoteText.String())
	}
	if remoteText.AnnotatedString() != text.AnnotatedString() {
		t.Fatalf("structure diverged:\n%s\n%s", text.AnnotatedString(), remoteText.AnnotatedString())
	}

	p, q, _ := text.CreateRange(1, 3)
	execute(t, remote, roundTrip(t, NewSelect(text.CreatedAt(), p, q, tk(4, 2))))
	execute(t, remote, roundTrip(t, NewSelect(text.CreatedAt(), p, q, tk(5, 2))))
	if from, to, ok := remoteText.SelectionRange(actorOf(2)); !ok || from != 1 || to != 3 {
		t.Fatalf("Expected selection 1:3, got %d:%d (%v)", from, to, ok)
	}
}

func TestOperations_Counter(t *testing.T) {
	root := crdt.NewRoot()
	execute(t, root, roundTrip(t, NewSetCounter("count", crdt.IntValue(1), tk(1, 1))))

	elem, _ := root.Get("count")
	counter := elem.(*crdt.Counter)

	execute(t, root, roundTrip(t, NewIncrease(counter.CreatedAt(), crdt.IntValue(5), tk(2, 1))))
	execute(t, root, roundTrip(t, NewIncrease(counter.CreatedAt(), crdt.FloatValue(1.5), tk(3, 1))))
	execute(t, root, roundTrip(t, NewIncrease(counter.CreatedAt(), crdt.IntValue(1), tk(4, 1))))

	if counter.Value().Kind() != crdt.NumericFloat || counter.Value().Float() != 8.5 {
		t.Fatalf("Expected float 8.5, got %v", counter.Value())
	}
}

func TestSet_IsIdempotent(t *testing.T) {
	root := crdt.NewRoot()
	set := NewSetText("text", "abc", tk(1, 1))
	execute(t, root, set)

	text := textOf(t, root, "text")
	from, to, _ := text.CreateRange(0, 1)
	if _, err := text.EditInternal(from, to, "", tk(2, 1), nil); err != nil {
		t.Fatalf("EditInternal failed: %v", err)
	}

	execute(t, root, set)
	if got := textOf(t, root, "text"); got != text || got.String() != "bc" {
		t.Fatalf("replayed Set replaced the element: %q", got.String())
	}
}

func TestOperations_TargetErrors(t *testing.T) {
	root := crdt.NewRoot()
	execute(t, root, NewSetCounter("count", crdt.IntValue(0), tk(1, 1)))

	pos := crdt.NewPos(crdt.NewNodeID(ticket.InitialTicket, 0), 0)
	tests := []struct {
		name string
		op   Operation
		want error
	}{
		{"missing text", NewEdit(tk(9, 9), pos, pos, nil, "x", tk(2, 1)), ErrTargetNotFound},
		{"counter is not text", NewSelect(tk(1, 1), pos, pos, tk(2, 1)), ErrTargetTypeMismatch},
		{"missing counter", NewIncrease(tk(9, 9), crdt.IntValue(1), tk(2, 1)), ErrTargetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op.Execute(root); !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecode_UnknownKind(t *testing.T) {
	if _, err := Decode([]byte{0x80}); !errors.Is(err, crdt.ErrInvalidData) {
		t.Fatalf("Expected ErrInvalidData, got %v", err)
	}
}
