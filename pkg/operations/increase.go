package operations

import (
	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/ticket"
)

// Increase 记录一次计数器增量。
type Increase struct {
	parentCreatedAt ticket.Ticket
	value           crdt.Numeric
	executedAt      ticket.Ticket
}

// NewIncrease 创建增量操作。
func NewIncrease(parentCreatedAt ticket.Ticket, value crdt.Numeric, executedAt ticket.Ticket) *Increase {
	return &Increase{parentCreatedAt: parentCreatedAt, value: value, executedAt: executedAt}
}

// Execute 把增量加到目标计数器上。
func (o *Increase) Execute(root *crdt.Root) error {
	counter, err := findCounter(root, o.parentCreatedAt)
	if err != nil {
		return err
	}
	counter.Increase(o.value)
	return nil
}

// ExecutedAt 返回操作的 ticket。
func (o *Increase) ExecutedAt() ticket.Ticket { return o.executedAt }

// Value 返回增量。
func (o *Increase) Value() crdt.Numeric { return o.value }
