package operations

import (
	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/ticket"
)

// Edit 记录一次文本编辑。seen 是本地编辑时删除涉及的每个创建者的最大
// createdAt，远端回放时只删除这些节点，不会误删并发插入的内容。
type Edit struct {
	parentCreatedAt ticket.Ticket
	from            crdt.Pos
	to              crdt.Pos
	seen            map[ticket.ActorID]ticket.Ticket
	content         string
	executedAt      ticket.Ticket
}

// NewEdit 创建编辑操作。seen 为 nil 时按空集处理。
func NewEdit(
	parentCreatedAt ticket.Ticket,
	from, to crdt.Pos,
	seen map[ticket.ActorID]ticket.Ticket,
	content string,
	executedAt ticket.Ticket,
) *Edit {
	if seen == nil {
		seen = make(map[ticket.ActorID]ticket.Ticket)
	}
	return &Edit{
		parentCreatedAt: parentCreatedAt,
		from:            from,
		to:              to,
		seen:            seen,
		content:         content,
		executedAt:      executedAt,
	}
}

// Execute 在目标文本上回放编辑。
func (o *Edit) Execute(root *crdt.Root) error {
	text, err := findText(root, o.parentCreatedAt)
	if err != nil {
		return err
	}
	_, err = text.EditInternal(o.from, o.to, o.content, o.executedAt, o.seen)
	return err
}

// ExecutedAt 返回操作的 ticket。
func (o *Edit) ExecutedAt() ticket.Ticket { return o.executedAt }

// ParentCreatedAt 返回目标文本的 createdAt。
func (o *Edit) ParentCreatedAt() ticket.Ticket { return o.parentCreatedAt }

// Content 返回插入的内容。
func (o *Edit) Content() string { return o.content }
