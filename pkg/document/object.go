package document

import (
	"fmt"

	"github.com/shinyes/yep_text/pkg/change"
	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/operations"
)

// Object 是事务内顶层元素的入口。
type Object struct {
	ctx *change.Context
}

// SetNewText 在 key 上创建新的文本。
func (o *Object) SetNewText(key, initial string) *Text {
	op := operations.NewSetText(key, initial, o.ctx.IssueTicket())
	o.execute(op)

	elem, _ := o.ctx.Registry().Get(key)
	return newText(o.ctx, elem.(*crdt.Text))
}

// SetNewCounter 在 key 上创建新的计数器，initial 的类型规则与 Counter.Increase 相同。
func (o *Object) SetNewCounter(key string, initial any) (*Counter, error) {
	value, err := crdt.NumericOf(initial)
	if err != nil {
		return nil, fmt.Errorf("set counter %q: %w", key, err)
	}

	op := operations.NewSetCounter(key, value, o.ctx.IssueTicket())
	o.execute(op)

	elem, _ := o.ctx.Registry().Get(key)
	return new(Counter).Initialize(o.ctx, elem.(*crdt.Counter)), nil
}

// GetText 返回 key 上的文本代理。
func (o *Object) GetText(key string) (*Text, error) {
	elem, err := o.get(key, crdt.TypeText)
	if err != nil {
		return nil, err
	}
	return newText(o.ctx, elem.(*crdt.Text)), nil
}

// GetCounter 返回 key 上的计数器代理。
func (o *Object) GetCounter(key string) (*Counter, error) {
	elem, err := o.get(key, crdt.TypeCounter)
	if err != nil {
		return nil, err
	}
	return new(Counter).Initialize(o.ctx, elem.(*crdt.Counter)), nil
}

func (o *Object) get(key string, expected crdt.Type) (crdt.Element, error) {
	elem, ok := o.ctx.Registry().Get(key)
	if !ok {
		return nil, &ElementNotFoundError{Key: key}
	}
	if elem.Type() != expected {
		return nil, &TypeMismatchError{Key: key, ExpectedType: expected, GotType: elem.Type()}
	}
	return elem, nil
}

// execute 在克隆上执行刚签发的 Set。新 ticket 总是比已有元素新，不会失败。
func (o *Object) execute(op *operations.Set) {
	if err := op.Execute(o.ctx.Registry()); err != nil {
		panic(fmt.Errorf("set %q: %w", op.Key(), err))
	}
	o.ctx.Push(op)
}
