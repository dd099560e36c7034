package crdt

import (
	"math"
	"math/big"

	"github.com/shinyes/yep_text/pkg/ticket"
)

// 非有限浮点增量的标记位。
const (
	sawPosInf uint8 = 1 << iota
	sawNegInf
	sawNaN
)

// Counter 是基于操作的计数器。
//
// 增量累加在精确的有理数上，整数溢出和浮点舍入都不会让结果依赖应用顺序，
// 副本以任意顺序应用同一组增量后得到相同的值。只有在读取时才折算为 Numeric。
type Counter struct {
	createdAt ticket.Ticket
	removedAt *ticket.Ticket

	kind      NumericKind
	sum       *big.Rat
	nonFinite uint8
}

// NewCounter 创建计数器。
func NewCounter(createdAt ticket.Ticket, initial Numeric) *Counter {
	c := &Counter{createdAt: createdAt, sum: new(big.Rat)}
	return c.Increase(initial)
}

// Type 返回 TypeCounter。
func (c *Counter) Type() Type {
	return TypeCounter
}

// CreatedAt 返回计数器的创建 ticket。
func (c *Counter) CreatedAt() ticket.Ticket {
	return c.createdAt
}

// RemovedAt 返回计数器的移除 ticket。
func (c *Counter) RemovedAt() *ticket.Ticket {
	return c.removedAt
}

// Remove 标记计数器被移除。
func (c *Counter) Remove(removedAt ticket.Ticket) bool {
	return removeElement(&c.removedAt, removedAt)
}

// Value 返回当前值。只累加过整数且和落在 int64 范围内时是整数，否则是浮点数。
func (c *Counter) Value() Numeric {
	switch {
	case c.nonFinite&sawNaN != 0, c.nonFinite&(sawPosInf|sawNegInf) == sawPosInf|sawNegInf:
		return FloatValue(math.NaN())
	case c.nonFinite&sawPosInf != 0:
		return FloatValue(math.Inf(1))
	case c.nonFinite&sawNegInf != 0:
		return FloatValue(math.Inf(-1))
	}

	if c.kind == NumericInt && c.sum.IsInt() && c.sum.Num().IsInt64() {
		return IntValue(c.sum.Num().Int64())
	}
	f, _ := c.sum.Float64()
	return FloatValue(f)
}

// Increase 把 v 加到当前值上，负数表示减少。
func (c *Counter) Increase(v Numeric) *Counter {
	if v.kind == NumericInt {
		c.sum.Add(c.sum, new(big.Rat).SetInt64(v.i))
		return c
	}

	c.kind = NumericFloat
	switch {
	case math.IsNaN(v.f):
		c.nonFinite |= sawNaN
	case math.IsInf(v.f, 1):
		c.nonFinite |= sawPosInf
	case math.IsInf(v.f, -1):
		c.nonFinite |= sawNegInf
	default:
		c.sum.Add(c.sum, new(big.Rat).SetFloat64(v.f))
	}
	return c
}

// Marshal 返回 JSON 数值。
func (c *Counter) Marshal() string {
	return c.Value().String()
}

// DeepCopy 返回计数器的副本。
func (c *Counter) DeepCopy() Element {
	clone := &Counter{
		createdAt: c.createdAt,
		kind:      c.kind,
		sum:       new(big.Rat).Set(c.sum),
		nonFinite: c.nonFinite,
	}
	if c.removedAt != nil {
		removedAt := *c.removedAt
		clone.removedAt = &removedAt
	}
	return clone
}
