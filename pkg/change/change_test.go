package change

import (
	"testing"

	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/operations"
	"github.com/shinyes/yep_text/pkg/ticket"
)

func actorOf(b byte) ticket.ActorID {
	var id ticket.ActorID
	id[15] = b
	return id
}

func TestID_Next(t *testing.T) {
	id := InitialID(actorOf(1))

	next := id.Next(100)
	if next.ClientSeq() != 1 || next.Lamport() != 100 {
		t.Fatalf("unexpected id %s", next)
	}

	// 时钟读数没有前进时 lamport 仍然递增
	again := next.Next(50)
	if again.ClientSeq() != 2 || again.Lamport() != 101 {
		t.Fatalf("unexpected id %s", again)
	}
}

func TestContext_IssueTicket(t *testing.T) {
	ctx := NewContext(NewID(1, 7, actorOf(1)), "", crdt.NewRoot())

	first := ctx.IssueTicket()
	second := ctx.IssueTicket()
	if !second.After(first) {
		t.Fatalf("tickets should increase within a transaction: %s, %s", first, second)
	}
	if first.Lamport() != 7 || second.Lamport() != 7 || first.Delimiter() != 1 || second.Delimiter() != 2 {
		t.Fatalf("unexpected tickets %s, %s", first, second)
	}
	if ctx.HasOperations() {
		t.Fatal("new context should not have operations")
	}
}

func TestChange_EncodeDecodeExecute(t *testing.T) {
	ctx := NewContext(NewID(1, 7, actorOf(1)), "create", crdt.NewRoot())
	textAt := ctx.IssueTicket()
	ctx.Push(operations.NewSetText("text", "hi", textAt))
	counterAt := ctx.IssueTicket()
	ctx.Push(operations.NewSetCounter("count", crdt.IntValue(2), counterAt))
	ctx.Push(operations.NewIncrease(counterAt, crdt.FloatValue(0.5), ctx.IssueTicket()))

	vv := NewVersionVector()
	vv.Set(actorOf(1), 7)
	vv.Set(actorOf(2), 3)
	c := ctx.ToChange(vv)

	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.ID() != c.ID() || decoded.Message() != "create" {
		t.Fatalf("unexpected change %s %q", decoded.ID(), decoded.Message())
	}
	if decoded.VersionVector().String() != "[01:7,02:3]" {
		t.Fatalf("unexpected version vector %s", decoded.VersionVector())
	}
	if len(decoded.Operations()) != 3 {
		t.Fatalf("Expected 3 operations, got %d", len(decoded.Operations()))
	}

	root := crdt.NewRoot()
	if err := decoded.Execute(root); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if want := `{"count":2.5,"text":"hi"}`; root.Marshal() != want {
		t.Fatalf("Expected %s, got %s", want, root.Marshal())
	}
}

func TestVersionVector(t *testing.T) {
	a := NewVersionVector()
	a.Set(actorOf(1), 5)
	a.Set(actorOf(1), 3)
	a.Set(actorOf(2), 2)

	if a.Get(actorOf(1)) != 5 || a.Get(actorOf(3)) != 0 {
		t.Fatalf("unexpected vector %s", a)
	}

	b := NewVersionVector()
	b.Set(actorOf(2), 4)
	if a.Descends(b) {
		t.Fatal("a should not descend b")
	}

	merged := a.Copy()
	merged.Merge(b)
	if !merged.Descends(a) || !merged.Descends(b) {
		t.Fatalf("merged vector %s should descend both", merged)
	}
	if a.Get(actorOf(2)) != 2 {
		t.Fatal("Copy should not share storage")
	}
	if merged.String() != "[01:5,02:4]" {
		t.Fatalf("unexpected String() %s", merged.String())
	}
}

func TestChange_DecodeWithoutVersionVector(t *testing.T) {
	ctx := NewContext(NewID(1, 7, actorOf(1)), "", crdt.NewRoot())
	ctx.Push(operations.NewSetText("text", "", ctx.IssueTicket()))

	data, err := Encode(ctx.ToChange(nil))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(decoded.VersionVector()) != 0 {
		t.Fatalf("Expected empty version vector, got %s", decoded.VersionVector())
	}
}
