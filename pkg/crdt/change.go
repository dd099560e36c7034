package crdt

import (
	"fmt"

	"github.com/shinyes/yep_text/pkg/ticket"
)

// TextChangeType 区分内容变化和选区变化。
type TextChangeType int

const (
	ContentChange TextChangeType = iota
	SelectionChange
)

func (t TextChangeType) String() string {
	switch t {
	case ContentChange:
		return "content"
	case SelectionChange:
		return "selection"
	default:
		return "unknown"
	}
}

// TextChange 描述一次可见变化。
// 一批变化按顺序应用：每个变化的偏移都基于前面的变化已经生效后的文本。
type TextChange struct {
	Type    TextChangeType
	Actor   ticket.ActorID
	From    int
	To      int
	Content string
}

func (c TextChange) String() string {
	if c.Type == SelectionChange {
		return fmt.Sprintf("selection(%s %d:%d)", c.Actor.Short(), c.From, c.To)
	}
	return fmt.Sprintf("content(%s %d:%d %q)", c.Actor.Short(), c.From, c.To, c.Content)
}
