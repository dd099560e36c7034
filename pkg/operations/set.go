package operations

import (
	"fmt"

	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/ticket"
)

// Set 在顶层 key 上创建一个新元素，元素的 createdAt 就是操作的 ticket。
type Set struct {
	key         string
	elementType crdt.Type
	initialText string
	initialNum  crdt.Numeric
	executedAt  ticket.Ticket
}

// NewSetText 创建一个设置文本的操作。
func NewSetText(key, initial string, executedAt ticket.Ticket) *Set {
	return &Set{key: key, elementType: crdt.TypeText, initialText: initial, executedAt: executedAt}
}

// NewSetCounter 创建一个设置计数器的操作。
func NewSetCounter(key string, initial crdt.Numeric, executedAt ticket.Ticket) *Set {
	return &Set{key: key, elementType: crdt.TypeCounter, initialNum: initial, executedAt: executedAt}
}

// Execute 创建元素并注册到 root。已经存在同一 createdAt 的元素时什么都不做。
func (o *Set) Execute(root *crdt.Root) error {
	if _, ok := root.FindByCreatedAt(o.executedAt); ok {
		return nil
	}

	elem, err := o.newElement()
	if err != nil {
		return err
	}
	root.Set(o.key, elem)
	return nil
}

func (o *Set) newElement() (crdt.Element, error) {
	switch o.elementType {
	case crdt.TypeText:
		return crdt.NewText(o.executedAt, o.initialText), nil
	case crdt.TypeCounter:
		return crdt.NewCounter(o.executedAt, o.initialNum), nil
	default:
		return nil, fmt.Errorf("set %q to %s: %w", o.key, o.elementType, crdt.ErrUnsupportedType)
	}
}

// ExecutedAt 返回操作的 ticket。
func (o *Set) ExecutedAt() ticket.Ticket { return o.executedAt }

// Key 返回顶层 key。
func (o *Set) Key() string { return o.key }

// ElementType 返回要创建的元素类型。
func (o *Set) ElementType() crdt.Type { return o.elementType }
