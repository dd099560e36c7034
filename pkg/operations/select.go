package operations

import (
	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/ticket"
)

// Select 记录一次选区更新。
type Select struct {
	parentCreatedAt ticket.Ticket
	from            crdt.Pos
	to              crdt.Pos
	executedAt      ticket.Ticket
}

// NewSelect 创建选区操作。
func NewSelect(parentCreatedAt ticket.Ticket, from, to crdt.Pos, executedAt ticket.Ticket) *Select {
	return &Select{
		parentCreatedAt: parentCreatedAt,
		from:            from,
		to:              to,
		executedAt:      executedAt,
	}
}

// Execute 更新目标文本中操作者的选区。
func (o *Select) Execute(root *crdt.Root) error {
	text, err := findText(root, o.parentCreatedAt)
	if err != nil {
		return err
	}
	return text.UpdateSelectionInternal(o.from, o.to, o.executedAt)
}

// ExecutedAt 返回操作的 ticket。
func (o *Select) ExecutedAt() ticket.Ticket { return o.executedAt }
