package splay

import (
	"errors"
	"testing"
	"unicode/utf8"
)

type stringValue struct {
	content string
	removed bool
}

func newValue(content string) *stringValue {
	return &stringValue{content: content}
}

func (v *stringValue) Len() int {
	if v.removed {
		return 0
	}
	return utf8.RuneCountInString(v.content)
}

func (v *stringValue) String() string {
	return v.content
}

func TestTree_InsertAndFind(t *testing.T) {
	tree := NewTree[*stringValue](nil)

	nodeA := tree.Insert(NewNode(newValue("A2")))
	if got := tree.String(); got != "[2,2]A2" {
		t.Fatalf("String() = %q, want %q", got, "[2,2]A2")
	}
	nodeB := tree.Insert(NewNode(newValue("B23")))
	if got := tree.String(); got != "[2,2]A2[5,3]B23" {
		t.Fatalf("String() = %q, want %q", got, "[2,2]A2[5,3]B23")
	}
	nodeC := tree.Insert(NewNode(newValue("C234")))
	nodeD := tree.Insert(NewNode(newValue("D2345")))
	if got := tree.String(); got != "[2,2]A2[5,3]B23[9,4]C234[14,5]D2345" {
		t.Fatalf("String() = %q", got)
	}

	tree.Splay(nodeB)
	if got := tree.String(); got != "[2,2]A2[14,3]B23[9,4]C234[5,5]D2345" {
		t.Fatalf("String() after splay = %q", got)
	}

	if idx := tree.IndexOf(nodeA); idx != 0 {
		t.Fatalf("IndexOf(A) = %d, want 0", idx)
	}
	if idx := tree.IndexOf(nodeB); idx != 2 {
		t.Fatalf("IndexOf(B) = %d, want 2", idx)
	}
	if idx := tree.IndexOf(nodeC); idx != 5 {
		t.Fatalf("IndexOf(C) = %d, want 5", idx)
	}
	if idx := tree.IndexOf(nodeD); idx != 9 {
		t.Fatalf("IndexOf(D) = %d, want 9", idx)
	}

	node, offset, err := tree.Find(4)
	if err != nil {
		t.Fatalf("Find(4) failed: %v", err)
	}
	if node != nodeB || offset != 2 {
		t.Fatalf("Find(4) = (%s, %d), want (B23, 2)", node.Value(), offset)
	}

	node, offset, err = tree.Find(14)
	if err != nil {
		t.Fatalf("Find(14) failed: %v", err)
	}
	if node != nodeD || offset != 5 {
		t.Fatalf("Find(14) = (%s, %d), want (D2345, 5)", node.Value(), offset)
	}

	if _, _, err := tree.Find(15); !errors.Is(err, ErrOutOfIndex) {
		t.Fatalf("expected ErrOutOfIndex, got %v", err)
	}
	if _, _, err := tree.Find(-1); !errors.Is(err, ErrOutOfIndex) {
		t.Fatalf("expected ErrOutOfIndex, got %v", err)
	}

	if !tree.CheckWeight() {
		t.Fatal("weights are inconsistent")
	}
}

func TestTree_FindPrefersLeftAtBoundary(t *testing.T) {
	tree := NewTree[*stringValue](nil)
	head := tree.Insert(NewNode(newValue("")))
	nodeA := tree.Insert(NewNode(newValue("AB")))
	tree.Insert(NewNode(newValue("CD")))

	node, offset, err := tree.Find(0)
	if err != nil {
		t.Fatalf("Find(0) failed: %v", err)
	}
	if node != head || offset != 0 {
		t.Fatalf("Find(0) = (%q, %d), want head", node.Value(), offset)
	}

	node, offset, err = tree.Find(2)
	if err != nil {
		t.Fatalf("Find(2) failed: %v", err)
	}
	if node != nodeA || offset != 2 {
		t.Fatalf("Find(2) = (%q, %d), want (AB, 2)", node.Value(), offset)
	}
}

func TestTree_ValueLengthChange(t *testing.T) {
	tree := NewTree[*stringValue](nil)
	tree.Insert(NewNode(newValue("AB")))
	nodeB := tree.Insert(NewNode(newValue("CD")))
	nodeC := tree.Insert(NewNode(newValue("EF")))

	nodeB.Value().removed = true
	tree.Splay(nodeB)

	if tree.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", tree.Len())
	}
	if idx := tree.IndexOf(nodeC); idx != 2 {
		t.Fatalf("IndexOf(C) = %d, want 2", idx)
	}
	if !tree.CheckWeight() {
		t.Fatal("weights are inconsistent")
	}
}

func TestTree_Delete(t *testing.T) {
	tree := NewTree[*stringValue](nil)
	nodeA := tree.Insert(NewNode(newValue("A")))
	nodeB := tree.Insert(NewNode(newValue("BB")))
	nodeC := tree.Insert(NewNode(newValue("CCC")))

	tree.Delete(nodeB)
	if got := tree.String(); got != "[4,1]A[3,3]CCC" {
		t.Fatalf("String() after delete = %q", got)
	}
	if idx := tree.IndexOf(nodeB); idx != -1 {
		t.Fatalf("IndexOf(deleted) = %d, want -1", idx)
	}
	if idx := tree.IndexOf(nodeC); idx != 1 {
		t.Fatalf("IndexOf(C) = %d, want 1", idx)
	}

	tree.Delete(nodeA)
	tree.Delete(nodeC)
	if tree.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", tree.Len())
	}
}

func TestTree_InsertAfter(t *testing.T) {
	tree := NewTree[*stringValue](nil)
	nodeA := tree.Insert(NewNode(newValue("A")))
	tree.Insert(NewNode(newValue("C")))
	nodeB := tree.InsertAfter(nodeA, NewNode(newValue("B")))

	if idx := tree.IndexOf(nodeB); idx != 1 {
		t.Fatalf("IndexOf(B) = %d, want 1", idx)
	}
	if !tree.CheckWeight() {
		t.Fatal("weights are inconsistent")
	}
}
