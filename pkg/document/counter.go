package document

import (
	"fmt"

	"github.com/shinyes/yep_text/pkg/change"
	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/operations"
)

// Counter 是事务内的计数器代理。零值未初始化，必须先调用 Initialize。
type Counter struct {
	ctx     *change.Context
	counter *crdt.Counter
}

// Initialize 绑定事务上下文和计数器。
func (p *Counter) Initialize(ctx *change.Context, counter *crdt.Counter) *Counter {
	p.ctx = ctx
	p.counter = counter
	return p
}

// Increase 把 v 加到计数器上并记录操作。v 必须是 Go 的整数或浮点类型，
// bool 和其他类型返回 crdt.ErrUnsupportedType。未初始化时 panic。
func (p *Counter) Increase(v any) (*Counter, error) {
	if p.ctx == nil || p.counter == nil {
		panic(fmt.Errorf("increase counter: %w", crdt.ErrNotInitialized))
	}

	value, err := crdt.NumericOf(v)
	if err != nil {
		return nil, fmt.Errorf("increase counter: %w", err)
	}

	executedAt := p.ctx.IssueTicket()
	p.counter.Increase(value)
	p.ctx.Push(operations.NewIncrease(p.counter.CreatedAt(), value, executedAt))
	return p, nil
}

// Value 返回当前值。
func (p *Counter) Value() crdt.Numeric {
	if p.counter == nil {
		panic(fmt.Errorf("counter value: %w", crdt.ErrNotInitialized))
	}
	return p.counter.Value()
}
