// Package splay 实现带权重的伸展树，用作可见偏移到节点的位置索引。
//
// 每个节点的权重是其子树中所有值的 Len() 之和。按可见偏移查找、
// 求节点的可见偏移都是均摊 O(log n)。
package splay

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOutOfIndex 表示查找的偏移超出了树的总权重。
	ErrOutOfIndex = errors.New("index out of range")
)

// Value 是树中节点承载的值。
type Value interface {
	Len() int
	String() string
}

// Node 是伸展树的节点。
type Node[V Value] struct {
	value  V
	weight int

	left   *Node[V]
	right  *Node[V]
	parent *Node[V]
}

// NewNode 创建一个新节点。
func NewNode[V Value](value V) *Node[V] {
	n := &Node[V]{value: value}
	n.initWeight()
	return n
}

// Value 返回节点承载的值。
func (n *Node[V]) Value() V {
	return n.value
}

func (n *Node[V]) leftWeight() int {
	if n.left == nil {
		return 0
	}
	return n.left.weight
}

func (n *Node[V]) rightWeight() int {
	if n.right == nil {
		return 0
	}
	return n.right.weight
}

func (n *Node[V]) initWeight() {
	n.weight = n.value.Len()
}

func (n *Node[V]) increaseWeight(weight int) {
	n.weight += weight
}

func (n *Node[V]) unlink() {
	n.parent = nil
	n.left = nil
	n.right = nil
}

// Tree 是带权重的伸展树。不支持并发使用。
type Tree[V Value] struct {
	root *Node[V]
}

// NewTree 创建一棵新树，root 可以为 nil。
func NewTree[V Value](root *Node[V]) *Tree[V] {
	return &Tree[V]{root: root}
}

// Len 返回树的总权重。
func (t *Tree[V]) Len() int {
	if t.root == nil {
		return 0
	}
	return t.root.weight
}

// Insert 把节点插入到树的最右端。
func (t *Tree[V]) Insert(node *Node[V]) *Node[V] {
	if t.root == nil {
		t.root = node
		return node
	}
	return t.InsertAfter(t.maximum(), node)
}

// InsertAfter 把 node 插入到 prev 之后。
func (t *Tree[V]) InsertAfter(prev *Node[V], node *Node[V]) *Node[V] {
	if prev == nil {
		t.root = node
		return node
	}

	t.Splay(prev)
	t.root = node
	node.right = prev.right
	if prev.right != nil {
		prev.right.parent = node
	}
	node.left = prev
	prev.parent = node
	prev.right = nil

	t.updateWeight(prev)
	t.updateWeight(node)

	return node
}

// Splay 把节点旋转到根。节点的值长度变化后调用它可以刷新沿途的权重。
func (t *Tree[V]) Splay(node *Node[V]) {
	if node == nil {
		return
	}

	for {
		if isLeftChild(node.parent) && isRightChild(node) {
			// zig-zag
			t.rotateLeft(node)
			t.rotateRight(node)
		} else if isRightChild(node.parent) && isLeftChild(node) {
			// zig-zag
			t.rotateRight(node)
			t.rotateLeft(node)
		} else if isLeftChild(node.parent) && isLeftChild(node) {
			// zig-zig
			t.rotateRight(node.parent)
			t.rotateRight(node)
		} else if isRightChild(node.parent) && isRightChild(node) {
			// zig-zig
			t.rotateLeft(node.parent)
			t.rotateLeft(node)
		} else {
			// zig
			if isLeftChild(node) {
				t.rotateRight(node)
			} else if isRightChild(node) {
				t.rotateLeft(node)
			}
			t.updateWeight(node)
			return
		}
	}
}

// IndexOf 返回节点之前所有值的总长度，节点不在树中时返回 -1。
func (t *Tree[V]) IndexOf(node *Node[V]) int {
	if node == nil || (node != t.root && node.parent == nil) {
		return -1
	}

	t.Splay(node)
	return node.leftWeight()
}

// Find 返回可见偏移 index 所在的节点以及节点内的偏移。
// 落在边界上时优先返回左侧节点，因此 index == Len() 返回最后一个节点的末尾。
func (t *Tree[V]) Find(index int) (*Node[V], int, error) {
	if t.root == nil {
		return nil, 0, fmt.Errorf("find %d in empty tree: %w", index, ErrOutOfIndex)
	}
	if index < 0 || index > t.root.weight {
		return nil, 0, fmt.Errorf("find %d, length %d: %w", index, t.root.weight, ErrOutOfIndex)
	}

	node := t.root
	offset := index
	for {
		if node.left != nil && offset <= node.leftWeight() {
			node = node.left
		} else if node.right != nil && node.leftWeight()+node.value.Len() < offset {
			offset -= node.leftWeight() + node.value.Len()
			node = node.right
		} else {
			offset -= node.leftWeight()
			break
		}
	}

	if offset > node.value.Len() {
		return nil, 0, fmt.Errorf("find %d, node length %d: %w", index, node.value.Len(), ErrOutOfIndex)
	}

	t.Splay(node)
	return node, offset, nil
}

// Delete 从树中移除节点。
func (t *Tree[V]) Delete(node *Node[V]) {
	t.Splay(node)

	leftTree := NewTree(node.left)
	if leftTree.root != nil {
		leftTree.root.parent = nil
	}

	rightTree := NewTree(node.right)
	if rightTree.root != nil {
		rightTree.root.parent = nil
	}

	if leftTree.root != nil {
		maxNode := leftTree.maximum()
		leftTree.Splay(maxNode)
		leftTree.root.right = rightTree.root
		if rightTree.root != nil {
			rightTree.root.parent = leftTree.root
		}
		t.root = leftTree.root
	} else {
		t.root = rightTree.root
	}

	node.unlink()
	if t.root != nil {
		t.updateWeight(t.root)
	}
}

// String 按中序输出 "[weight,len]value"，用于调试。
func (t *Tree[V]) String() string {
	var builder strings.Builder
	traverseInOrder(t.root, func(node *Node[V]) {
		builder.WriteString(fmt.Sprintf("[%d,%d]%s", node.weight, node.value.Len(), node.value.String()))
	})
	return builder.String()
}

// CheckWeight 校验所有节点的权重，仅用于测试与调试。
func (t *Tree[V]) CheckWeight() bool {
	ok := true
	traversePostorder(t.root, func(node *Node[V]) {
		if node.weight != node.value.Len()+node.leftWeight()+node.rightWeight() {
			ok = false
		}
	})
	return ok
}

func (t *Tree[V]) maximum() *Node[V] {
	node := t.root
	for node.right != nil {
		node = node.right
	}
	return node
}

func (t *Tree[V]) updateWeight(node *Node[V]) {
	node.initWeight()

	if node.left != nil {
		node.increaseWeight(node.leftWeight())
	}
	if node.right != nil {
		node.increaseWeight(node.rightWeight())
	}
}

func (t *Tree[V]) rotateLeft(pivot *Node[V]) {
	root := pivot.parent
	if root.parent != nil {
		if root == root.parent.left {
			root.parent.left = pivot
		} else {
			root.parent.right = pivot
		}
	} else {
		t.root = pivot
	}
	pivot.parent = root.parent

	root.right = pivot.left
	if root.right != nil {
		root.right.parent = root
	}

	pivot.left = root
	root.parent = pivot

	t.updateWeight(root)
	t.updateWeight(pivot)
}

func (t *Tree[V]) rotateRight(pivot *Node[V]) {
	root := pivot.parent
	if root.parent != nil {
		if root == root.parent.left {
			root.parent.left = pivot
		} else {
			root.parent.right = pivot
		}
	} else {
		t.root = pivot
	}
	pivot.parent = root.parent

	root.left = pivot.right
	if root.left != nil {
		root.left.parent = root
	}

	pivot.right = root
	root.parent = pivot

	t.updateWeight(root)
	t.updateWeight(pivot)
}

func isLeftChild[V Value](node *Node[V]) bool {
	return node != nil && node.parent != nil && node.parent.left == node
}

func isRightChild[V Value](node *Node[V]) bool {
	return node != nil && node.parent != nil && node.parent.right == node
}

func traverseInOrder[V Value](node *Node[V], fn func(node *Node[V])) {
	if node == nil {
		return
	}
	traverseInOrder(node.left, fn)
	fn(node)
	traverseInOrder(node.right, fn)
}

func traversePostorder[V Value](node *Node[V], fn func(node *Node[V])) {
	if node == nil {
		return
	}
	traversePostorder(node.left, fn)
	traversePostorder(node.right, fn)
	fn(node)
}
