package document

import (
	"github.com/shinyes/yep_text/pkg/change"
	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/operations"
)

// Text 是事务内的文本代理：把可见偏移转换为位置，签发 ticket，
// 在克隆上执行编辑并记录操作。
type Text struct {
	ctx  *change.Context
	text *crdt.Text
}

func newText(ctx *change.Context, text *crdt.Text) *Text {
	return &Text{ctx: ctx, text: text}
}

// Edit 用 content 替换 [from, to)。
func (p *Text) Edit(from, to int, content string) (*Text, error) {
	fromPos, toPos, err := p.text.CreateRange(from, to)
	if err != nil {
		return nil, err
	}

	editedAt := p.ctx.IssueTicket()
	seen, err := p.text.EditInternal(fromPos, toPos, content, editedAt, nil)
	if err != nil {
		return nil, err
	}

	p.ctx.Push(operations.NewEdit(p.text.CreatedAt(), fromPos, toPos, seen, content, editedAt))
	return p, nil
}

// Select 把当前副本的选区设置为 [from, to)。
func (p *Text) Select(from, to int) (*Text, error) {
	fromPos, toPos, err := p.text.CreateRange(from, to)
	if err != nil {
		return nil, err
	}

	updatedAt := p.ctx.IssueTicket()
	if err := p.text.UpdateSelectionInternal(fromPos, toPos, updatedAt); err != nil {
		return nil, err
	}

	p.ctx.Push(operations.NewSelect(p.text.CreatedAt(), fromPos, toPos, updatedAt))
	return p, nil
}

// Len 返回可见长度。
func (p *Text) Len() int {
	return p.text.Len()
}

func (p *Text) String() string {
	return p.text.String()
}
