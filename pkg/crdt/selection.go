package crdt

import (
	"github.com/shinyes/yep_text/pkg/ticket"
)

// rangeIndexer 把一对位置解析为可见偏移。
type rangeIndexer interface {
	IndexesFromRange(from, to Pos) (int, int, error)
}

// Selection 是某个参与者的选区或光标。
type Selection struct {
	from      Pos
	to        Pos
	updatedAt ticket.Ticket
}

// From 返回选区起点。
func (s *Selection) From() Pos { return s.from }

// To 返回选区终点。
func (s *Selection) To() Pos { return s.to }

// UpdatedAt 返回最后一次更新的 ticket。
func (s *Selection) UpdatedAt() ticket.Ticket { return s.updatedAt }

// SelectionMap 按参与者保存选区，冲突时取 updatedAt 较新的一方。
type SelectionMap struct {
	indexer    rangeIndexer
	selections map[ticket.ActorID]*Selection
}

func newSelectionMap(indexer rangeIndexer) *SelectionMap {
	return &SelectionMap{
		indexer:    indexer,
		selections: make(map[ticket.ActorID]*Selection),
	}
}

// Update 记录 updatedAt 的参与者的选区。
// 参与者的第一个选区只被记录，不产生变化；之后只有更新的 updatedAt 才会替换
// 已有选区并返回一个 SelectionChange。
func (m *SelectionMap) Update(from, to Pos, updatedAt ticket.Ticket) (*TextChange, error) {
	actorID := updatedAt.ActorID()
	prev, ok := m.selections[actorID]
	if !ok {
		m.selections[actorID] = &Selection{from: from, to: to, updatedAt: updatedAt}
		return nil, nil
	}
	if !updatedAt.After(prev.updatedAt) {
		return nil, nil
	}

	fromIdx, toIdx, err := m.indexer.IndexesFromRange(from, to)
	if err != nil {
		return nil, err
	}
	m.selections[actorID] = &Selection{from: from, to: to, updatedAt: updatedAt}

	return &TextChange{
		Type:  SelectionChange,
		Actor: actorID,
		From:  fromIdx,
		To:    toIdx,
	}, nil
}

// Get 返回参与者的选区。
func (m *SelectionMap) Get(actorID ticket.ActorID) (*Selection, bool) {
	s, ok := m.selections[actorID]
	return s, ok
}

// Len 返回记录了选区的参与者数量。
func (m *SelectionMap) Len() int {
	return len(m.selections)
}

func (m *SelectionMap) deepCopy(indexer rangeIndexer) *SelectionMap {
	clone := newSelectionMap(indexer)
	for actorID, s := range m.selections {
		copied := *s
		clone.selections[actorID] = &copied
	}
	return clone
}
