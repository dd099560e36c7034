package crdt

import (
	"fmt"
	"strings"

	"github.com/google/btree"

	"github.com/shinyes/yep_text/pkg/splay"
	"github.com/shinyes/yep_text/pkg/ticket"
)

// SplitValue 是可以在任意偏移处切分的节点内容。
type SplitValue[V any] interface {
	Len() int
	String() string

	// Split 把自身截断为 [0, offset)，返回 [offset, Len()) 部分。
	Split(offset int) V

	DeepCopy() V
}

// NodeID 是节点的身份：创建 ticket 加上该片段在原始插入内容中的偏移。
// 切分产生的节点共享 createdAt，偏移各不相同。
type NodeID struct {
	createdAt ticket.Ticket
	offset    int
}

// NewNodeID 创建 NodeID。
func NewNodeID(createdAt ticket.Ticket, offset int) NodeID {
	return NodeID{createdAt: createdAt, offset: offset}
}

// CreatedAt 返回创建该节点的插入操作的 ticket。
func (id NodeID) CreatedAt() ticket.Ticket {
	return id.createdAt
}

// Offset 返回片段在原始插入内容中的偏移。
func (id NodeID) Offset() int {
	return id.offset
}

// Compare 先比较 createdAt，再比较偏移。
func (id NodeID) Compare(other NodeID) int {
	if c := id.createdAt.Compare(other.createdAt); c != 0 {
		return c
	}
	switch {
	case id.offset < other.offset:
		return -1
	case id.offset > other.offset:
		return 1
	default:
		return 0
	}
}

func (id NodeID) split(offset int) NodeID {
	return NodeID{createdAt: id.createdAt, offset: id.offset + offset}
}

func (id NodeID) String() string {
	return fmt.Sprintf("%s:%d", id.createdAt.String(), id.offset)
}

// Pos 是副本无关的位置：某个节点 ID 加上相对偏移。
// 节点之后被切分时，Pos 仍然指向同一个字符边界。
type Pos struct {
	id             NodeID
	relativeOffset int
}

// NewPos 创建 Pos。
func NewPos(id NodeID, relativeOffset int) Pos {
	return Pos{id: id, relativeOffset: relativeOffset}
}

// ID 返回位置所在节点的 ID。
func (p Pos) ID() NodeID {
	return p.id
}

// RelativeOffset 返回节点内的相对偏移。
func (p Pos) RelativeOffset() int {
	return p.relativeOffset
}

// Equal 比较两个位置是否完全相同。
func (p Pos) Equal(other Pos) bool {
	return p.id.Compare(other.id) == 0 && p.relativeOffset == other.relativeOffset
}

func (p Pos) absoluteID() NodeID {
	return p.id.split(p.relativeOffset)
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d", p.id.String(), p.relativeOffset)
}

// RGATreeSplitNode 是链中的一个节点。
type RGATreeSplitNode[V SplitValue[V]] struct {
	id        NodeID
	indexNode *splay.Node[*RGATreeSplitNode[V]]
	value     V
	removedAt *ticket.Ticket

	prev *RGATreeSplitNode[V]
	next *RGATreeSplitNode[V]

	// insPrev/insNext 把同一次插入切分出来的片段按偏移串起来。
	insPrev *RGATreeSplitNode[V]
	insNext *RGATreeSplitNode[V]
}

func newRGATreeSplitNode[V SplitValue[V]](id NodeID, value V) *RGATreeSplitNode[V] {
	node := &RGATreeSplitNode[V]{id: id, value: value}
	node.indexNode = splay.NewNode(node)
	return node
}

// ID 返回节点 ID。
func (n *RGATreeSplitNode[V]) ID() NodeID {
	return n.id
}

// Value 返回节点内容。
func (n *RGATreeSplitNode[V]) Value() V {
	return n.value
}

// RemovedAt 返回节点被删除的 ticket，存活节点返回 nil。
func (n *RGATreeSplitNode[V]) RemovedAt() *ticket.Ticket {
	return n.removedAt
}

// Len 返回可见长度，墓碑为 0。
func (n *RGATreeSplitNode[V]) Len() int {
	if n.removedAt != nil {
		return 0
	}
	return n.value.Len()
}

func (n *RGATreeSplitNode[V]) String() string {
	return n.value.String()
}

func (n *RGATreeSplitNode[V]) contentLen() int {
	return n.value.Len()
}

func (n *RGATreeSplitNode[V]) createdAt() ticket.Ticket {
	return n.id.createdAt
}

func (n *RGATreeSplitNode[V]) isRemoved() bool {
	return n.removedAt != nil
}

func (n *RGATreeSplitNode[V]) split(offset int) *RGATreeSplitNode[V] {
	right := newRGATreeSplitNode(n.id.split(offset), n.value.Split(offset))
	if n.removedAt != nil {
		removedAt := *n.removedAt
		right.removedAt = &removedAt
	}
	return right
}

// canDelete: 节点必须在编辑方的因果视野内，且本次删除晚于已有的删除。
func (n *RGATreeSplitNode[V]) canDelete(editedAt, latestCreatedAt ticket.Ticket) bool {
	if n.createdAt().After(latestCreatedAt) {
		return false
	}
	return n.removedAt == nil || editedAt.After(*n.removedAt)
}

func (n *RGATreeSplitNode[V]) remove(editedAt ticket.Ticket) {
	removedAt := editedAt
	n.removedAt = &removedAt
}

func (n *RGATreeSplitNode[V]) annotatedString() string {
	if n.isRemoved() {
		return fmt.Sprintf("{%s %s}", n.id.String(), n.value.String())
	}
	return fmt.Sprintf("[%s %s]", n.id.String(), n.value.String())
}

// RGATreeSplit 是以可切分节点组成的复制序列。
//
// 节点按文档顺序组成双向链表，首尾各有一个哨兵；伸展树按可见长度索引节点，
// B 树按 NodeID 索引节点。删除只留下墓碑，墓碑在 EvictTombstones 时才被物理移除。
// 不支持并发使用。
type RGATreeSplit[V SplitValue[V]] struct {
	head *RGATreeSplitNode[V]
	tail *RGATreeSplitNode[V]

	treeByIndex *splay.Tree[*RGATreeSplitNode[V]]
	treeByID    *btree.BTreeG[*RGATreeSplitNode[V]]

	removedNodes map[NodeID]*RGATreeSplitNode[V]
}

const btreeDegree = 32

// NewRGATreeSplit 创建只有首尾哨兵的空序列。empty 是长度为 0 的内容，
// 首尾哨兵各自持有它的一个副本。
func NewRGATreeSplit[V SplitValue[V]](empty V) *RGATreeSplit[V] {
	head := newRGATreeSplitNode(NewNodeID(ticket.InitialTicket, 0), empty.DeepCopy())
	tail := newRGATreeSplitNode(NewNodeID(ticket.MaxTicket, 0), empty.DeepCopy())
	head.next = tail
	tail.prev = head

	treeByID := btree.NewG(btreeDegree, func(a, b *RGATreeSplitNode[V]) bool {
		return a.id.Compare(b.id) < 0
	})
	treeByID.ReplaceOrInsert(head)

	return &RGATreeSplit[V]{
		head:         head,
		tail:         tail,
		treeByIndex:  splay.NewTree(head.indexNode),
		treeByID:     treeByID,
		removedNodes: make(map[NodeID]*RGATreeSplitNode[V]),
	}
}

// Len 返回可见长度。
func (s *RGATreeSplit[V]) Len() int {
	return s.treeByIndex.Len()
}

// TombstoneCount 返回尚未被回收的墓碑数量。
func (s *RGATreeSplit[V]) TombstoneCount() int {
	return len(s.removedNodes)
}

// FindPos 把可见偏移转换为 Pos。落在节点边界上时优先选择左侧节点，
// 所以 0 对应头哨兵，Len() 对应最后一个节点的末尾。
func (s *RGATreeSplit[V]) FindPos(index int) (Pos, error) {
	indexNode, offset, err := s.treeByIndex.Find(index)
	if err != nil {
		return Pos{}, fmt.Errorf("find position at %d: %w", index, ErrIndexOutOfRange)
	}
	return NewPos(indexNode.Value().id, offset), nil
}

// Edit 用 value 替换 [from, to) 范围内的内容。
//
// seen 为 nil 表示本地编辑，范围内所有节点都会被删除；否则只删除创建者在 seen 中、
// 且 createdAt 不晚于 seen 中对应 ticket 的节点。返回插入内容末尾(没有插入时为
// 删除范围末尾)的位置、本次删除涉及的每个创建者的最大 createdAt，以及按顺序
// 应用的可见变化。任何一个位置无法解析时直接返回错误，不修改序列。
func (s *RGATreeSplit[V]) Edit(
	from, to Pos,
	value V,
	editedAt ticket.Ticket,
	seen map[ticket.ActorID]ticket.Ticket,
) (Pos, map[ticket.ActorID]ticket.Ticket, []TextChange, error) {
	if err := s.checkPos(from); err != nil {
		return Pos{}, nil, nil, fmt.Errorf("edit from %s: %w", from, err)
	}
	if err := s.checkPos(to); err != nil {
		return Pos{}, nil, nil, fmt.Errorf("edit to %s: %w", to, err)
	}
	if err := s.checkRange(from, to); err != nil {
		return Pos{}, nil, nil, fmt.Errorf("edit %s..%s: %w", from, to, err)
	}

	// 1. 先切分 to 再切分 from，from 的切分不会影响 toRight
	_, toRight, err := s.findNodeWithSplit(to, editedAt)
	if err != nil {
		return Pos{}, nil, nil, err
	}
	fromLeft, fromRight, err := s.findNodeWithSplit(from, editedAt)
	if err != nil {
		return Pos{}, nil, nil, err
	}

	// 2. 删除范围内的节点
	candidates := s.findBetween(fromRight, toRight)
	changes, seenByActor := s.deleteNodes(candidates, editedAt, seen)

	caret := NewPos(toRight.prev.id, toRight.prev.contentLen())

	// 3. 在 fromLeft 之后插入新内容
	if value.Len() > 0 {
		id := NewNodeID(editedAt, 0)
		if existing, ok := s.treeByID.Get(&RGATreeSplitNode[V]{id: id}); ok {
			// 同一个编辑被重放
			caret = NewPos(existing.id, existing.contentLen())
		} else {
			index := s.treeByIndex.IndexOf(fromLeft.indexNode) + fromLeft.Len()
			inserted := s.insertAfter(fromLeft, newRGATreeSplitNode(id, value))

			content := inserted.value.String()
			if n := len(changes); n > 0 && changes[n-1].From == index {
				changes[n-1].Content = content
			} else {
				changes = append(changes, TextChange{
					Type:    ContentChange,
					Actor:   editedAt.ActorID(),
					From:    index,
					To:      index,
					Content: content,
				})
			}
			caret = NewPos(inserted.id, inserted.contentLen())
		}
	}

	return caret, seenByActor, changes, nil
}

// IndexesFromRange 把两个位置转换为可见偏移。位置落在墓碑上时解析为墓碑所在的偏移。
func (s *RGATreeSplit[V]) IndexesFromRange(from, to Pos) (int, int, error) {
	fromIdx, err := s.posToIndex(from)
	if err != nil {
		return 0, 0, err
	}
	toIdx, err := s.posToIndex(to)
	if err != nil {
		return 0, 0, err
	}
	return fromIdx, toIdx, nil
}

// EvictTombstones 物理移除 removedAt 不晚于 stable 的墓碑，返回移除的数量。
// 调用方保证所有副本都已经看到了 stable 之前的全部操作。
func (s *RGATreeSplit[V]) EvictTombstones(stable ticket.Ticket) int {
	count := 0
	for id, node := range s.removedNodes {
		if node.removedAt.After(stable) {
			continue
		}
		s.purge(node)
		delete(s.removedNodes, id)
		count++
	}
	return count
}

// DeepCopy 返回结构相同的副本，包括墓碑和切分关系。
func (s *RGATreeSplit[V]) DeepCopy() *RGATreeSplit[V] {
	clone := NewRGATreeSplit(s.head.value)
	for node := s.head.next; node != s.tail; node = node.next {
		clone.appendNode(node.id, node.value.DeepCopy(), node.removedAt)
	}
	clone.relinkInsertions()
	return clone
}

// Nodes 按文档顺序返回所有内容节点，包括墓碑，不包括哨兵。
func (s *RGATreeSplit[V]) Nodes() []*RGATreeSplitNode[V] {
	var nodes []*RGATreeSplitNode[V]
	for node := s.head.next; node != s.tail; node = node.next {
		nodes = append(nodes, node)
	}
	return nodes
}

// String 返回可见内容。
func (s *RGATreeSplit[V]) String() string {
	var b strings.Builder
	for node := s.head.next; node != s.tail; node = node.next {
		if !node.isRemoved() {
			b.WriteString(node.value.String())
		}
	}
	return b.String()
}

// AnnotatedString 返回包含节点 ID 的调试表示，墓碑用 {} 包裹。
func (s *RGATreeSplit[V]) AnnotatedString() string {
	var b strings.Builder
	for node := s.head.next; node != s.tail; node = node.next {
		b.WriteString(node.annotatedString())
	}
	return b.String()
}

// appendNode 把节点追加到尾哨兵之前，用于构造和复制。
func (s *RGATreeSplit[V]) appendNode(id NodeID, value V, removedAt *ticket.Ticket) *RGATreeSplitNode[V] {
	node := newRGATreeSplitNode(id, value)
	if removedAt != nil {
		node.remove(*removedAt)
	}
	s.insertAfter(s.tail.prev, node)
	return node
}

// relinkInsertions 根据 NodeID 重建 insPrev/insNext。
// 同一个 createdAt 的片段按偏移升序排列恰好就是切分链。
func (s *RGATreeSplit[V]) relinkInsertions() {
	var prev *RGATreeSplitNode[V]
	s.treeByID.Ascend(func(node *RGATreeSplitNode[V]) bool {
		node.insPrev, node.insNext = nil, nil
		if prev != nil && prev.createdAt() == node.createdAt() {
			prev.insNext = node
			node.insPrev = prev
		}
		prev = node
		return true
	})
}

func (s *RGATreeSplit[V]) insertAfter(prev, node *RGATreeSplitNode[V]) *RGATreeSplitNode[V] {
	next := prev.next
	node.prev = prev
	node.next = next
	prev.next = node
	next.prev = node

	s.treeByID.ReplaceOrInsert(node)
	s.treeByIndex.InsertAfter(prev.indexNode, node.indexNode)
	if node.isRemoved() {
		s.removedNodes[node.id] = node
	}
	return node
}

func (s *RGATreeSplit[V]) purge(node *RGATreeSplitNode[V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
	node.prev, node.next = nil, nil

	if node.insPrev != nil {
		node.insPrev.insNext = node.insNext
	}
	if node.insNext != nil {
		node.insNext.insPrev = node.insPrev
	}
	node.insPrev, node.insNext = nil, nil

	s.treeByIndex.Delete(node.indexNode)
	s.treeByID.Delete(node)
}

// findFloorNode 返回 ID 不大于 id 的最大节点。
func (s *RGATreeSplit[V]) findFloorNode(id NodeID) *RGATreeSplitNode[V] {
	var floor *RGATreeSplitNode[V]
	s.treeByID.DescendLessOrEqual(&RGATreeSplitNode[V]{id: id}, func(node *RGATreeSplitNode[V]) bool {
		floor = node
		return false
	})
	return floor
}

// findFloorNodePreferToLeft 在 id 恰好是某个片段的起点时返回它的前一个片段，
// 使位置始终锚定在左侧的内容上。
func (s *RGATreeSplit[V]) findFloorNodePreferToLeft(id NodeID) (*RGATreeSplitNode[V], error) {
	node := s.findFloorNode(id)
	if node == nil || node.createdAt() != id.createdAt {
		return nil, fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
	}

	if id.offset > 0 && node.id.offset == id.offset {
		if node.insPrev == nil {
			return nil, fmt.Errorf("left piece of %s: %w", id, ErrNodeNotFound)
		}
		node = node.insPrev
	}
	return node, nil
}

func (s *RGATreeSplit[V]) checkPos(pos Pos) error {
	if pos.relativeOffset < 0 {
		return fmt.Errorf("negative offset %d: %w", pos.relativeOffset, ErrIndexOutOfRange)
	}
	absoluteID := pos.absoluteID()
	node, err := s.findFloorNodePreferToLeft(absoluteID)
	if err != nil {
		return err
	}
	if absoluteID.offset-node.id.offset > node.contentLen() {
		return fmt.Errorf("offset %d in node %s: %w", pos.relativeOffset, node.id, ErrIndexOutOfRange)
	}
	return nil
}

// checkRange 校验 from 在链上不晚于 to。可见偏移相同时两者之间只能是墓碑，
// 此时沿链从 from 向后走到 to 来判断顺序。
func (s *RGATreeSplit[V]) checkRange(from, to Pos) error {
	fromIdx, toIdx, err := s.IndexesFromRange(from, to)
	if err != nil {
		return err
	}
	if fromIdx < toIdx {
		return nil
	}
	if fromIdx > toIdx {
		return fmt.Errorf("from %d after to %d: %w", fromIdx, toIdx, ErrIndexOutOfRange)
	}

	fromID, toID := from.absoluteID(), to.absoluteID()
	fromNode, err := s.findFloorNodePreferToLeft(fromID)
	if err != nil {
		return err
	}
	toNode, err := s.findFloorNodePreferToLeft(toID)
	if err != nil {
		return err
	}
	if fromNode == toNode {
		if fromID.offset > toID.offset {
			return fmt.Errorf("from offset %d after to offset %d: %w", fromID.offset, toID.offset, ErrIndexOutOfRange)
		}
		return nil
	}
	for node := fromNode.next; node != s.tail; node = node.next {
		if node == toNode {
			return nil
		}
		if node.Len() > 0 {
			break
		}
	}
	return fmt.Errorf("from is after to: %w", ErrIndexOutOfRange)
}

// findNodeWithSplit 在 pos 处切分节点，并跳过紧随其后、晚于 editedAt 的并发插入。
// 返回切分点左右两侧的节点。
func (s *RGATreeSplit[V]) findNodeWithSplit(
	pos Pos,
	editedAt ticket.Ticket,
) (*RGATreeSplitNode[V], *RGATreeSplitNode[V], error) {
	absoluteID := pos.absoluteID()
	node, err := s.findFloorNodePreferToLeft(absoluteID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.splitNode(node, absoluteID.offset-node.id.offset); err != nil {
		return nil, nil, err
	}

	for node.next != s.tail && node.next.createdAt().After(editedAt) {
		node = node.next
	}
	return node, node.next, nil
}

func (s *RGATreeSplit[V]) splitNode(node *RGATreeSplitNode[V], offset int) error {
	if offset > node.contentLen() {
		return fmt.Errorf("split %s at %d: %w", node.id, offset, ErrIndexOutOfRange)
	}
	if offset == 0 || offset == node.contentLen() {
		return nil
	}

	right := node.split(offset)
	s.insertAfter(node, right)

	right.insPrev = node
	right.insNext = node.insNext
	if node.insNext != nil {
		node.insNext.insPrev = right
	}
	node.insNext = right
	return nil
}

// findBetween 返回从 left 开始、到 right 之前为止的节点。
func (s *RGATreeSplit[V]) findBetween(left, right *RGATreeSplitNode[V]) []*RGATreeSplitNode[V] {
	var nodes []*RGATreeSplitNode[V]
	for node := left; node != right && node != s.tail; node = node.next {
		nodes = append(nodes, node)
	}
	return nodes
}

func (s *RGATreeSplit[V]) deleteNodes(
	candidates []*RGATreeSplitNode[V],
	editedAt ticket.Ticket,
	seen map[ticket.ActorID]ticket.Ticket,
) ([]TextChange, map[ticket.ActorID]ticket.Ticket) {
	var changes []TextChange
	seenByActor := make(map[ticket.ActorID]ticket.Ticket)

	for _, node := range candidates {
		actorID := node.createdAt().ActorID()

		latestCreatedAt := ticket.MaxTicket
		if seen != nil {
			latestCreatedAt = ticket.InitialTicket
			if t, ok := seen[actorID]; ok {
				latestCreatedAt = t
			}
		}
		if !node.canDelete(editedAt, latestCreatedAt) {
			continue
		}

		if !node.isRemoved() {
			from := s.treeByIndex.IndexOf(node.indexNode)
			to := from + node.Len()
			if n := len(changes); n > 0 && changes[n-1].From == from {
				changes[n-1].To += to - from
			} else {
				changes = append(changes, TextChange{
					Type:  ContentChange,
					Actor: editedAt.ActorID(),
					From:  from,
					To:    to,
				})
			}
			node.remove(editedAt)
			s.treeByIndex.Splay(node.indexNode)
		} else {
			node.remove(editedAt)
		}
		s.removedNodes[node.id] = node

		if prev, ok := seenByActor[actorID]; !ok || node.createdAt().After(prev) {
			seenByActor[actorID] = node.createdAt()
		}
	}

	return changes, seenByActor
}

func (s *RGATreeSplit[V]) posToIndex(pos Pos) (int, error) {
	absoluteID := pos.absoluteID()
	node, err := s.findFloorNodePreferToLeft(absoluteID)
	if err != nil {
		return 0, err
	}

	index := s.treeByIndex.IndexOf(node.indexNode)
	if node.isRemoved() {
		return index, nil
	}
	return index + absoluteID.offset - node.id.offset, nil
}
