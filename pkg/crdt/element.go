package crdt

import (
	"github.com/shinyes/yep_text/pkg/ticket"
)

// Type 标识 CRDT 元素的类型。
type Type byte

const (
	TypeText    Type = 0x01
	TypeCounter Type = 0x02
)

func (t Type) String() string {
	switch t {
	case TypeText:
		return "Text"
	case TypeCounter:
		return "Counter"
	default:
		return "Unknown"
	}
}

// Element 是文档中所有 CRDT 元素的通用能力。
// 各个元素类型通过 Type() 区分，而不是通过继承。
type Element interface {
	// Type 返回元素的类型。
	Type() Type

	// CreatedAt 返回元素的创建 ticket，同时也是元素的身份。
	CreatedAt() ticket.Ticket

	// RemovedAt 返回元素被移除的 ticket，未移除时返回 nil。
	RemovedAt() *ticket.Ticket

	// Remove 在 removedAt 晚于已有的移除时间时标记移除，返回是否发生变化。
	Remove(removedAt ticket.Ticket) bool

	// DeepCopy 返回结构完全相同的副本，节点身份和墓碑都会保留。
	DeepCopy() Element

	// Marshal 返回元素的 JSON 投影。
	Marshal() string
}

// removeElement 实现 Element.Remove 的共同逻辑。
func removeElement(current **ticket.Ticket, removedAt ticket.Ticket) bool {
	if *current == nil || removedAt.After(**current) {
		t := removedAt
		*current = &t
		return true
	}
	return false
}
