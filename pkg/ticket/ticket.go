// Package ticket 提供全序、携带因果信息的逻辑时间戳。
//
// Ticket 由外部上下文签发：lamport 来自逻辑时钟，actor 标识签发副本，
// delimiter 区分同一变更内签发的多个 ticket。
package ticket

import (
	"fmt"
	"math"
)

// Ticket 是不可变的逻辑时间戳。
// 全序：先比较 lamport，再比较 actor，最后比较 delimiter。
type Ticket struct {
	lamport   uint64
	actorID   ActorID
	delimiter uint32
}

var (
	// InitialTicket 是最小的 ticket，头哨兵节点使用它。
	InitialTicket = New(0, InitialActorID, 0)

	// MaxTicket 是最大的 ticket。本地编辑用它表示“已观察到所有节点”。
	MaxTicket = New(math.MaxUint64, MaxActorID, math.MaxUint32)
)

// New 创建一个 Ticket。
func New(lamport uint64, actorID ActorID, delimiter uint32) Ticket {
	return Ticket{
		lamport:   lamport,
		actorID:   actorID,
		delimiter: delimiter,
	}
}

// Lamport 返回 lamport 计数。
func (t Ticket) Lamport() uint64 { return t.lamport }

// ActorID 返回签发副本的 ID。
func (t Ticket) ActorID() ActorID { return t.actorID }

// Delimiter 返回同一变更内的序号。
func (t Ticket) Delimiter() uint32 { return t.delimiter }

// Compare 比较两个 ticket。
// 返回值:
//   - 如果 t > other: 返回 1
//   - 如果 t == other: 返回 0
//   - 如果 t < other: 返回 -1
func (t Ticket) Compare(other Ticket) int {
	if t.lamport > other.lamport {
		return 1
	}
	if t.lamport < other.lamport {
		return -1
	}

	if c := t.actorID.Compare(other.actorID); c != 0 {
		return c
	}

	if t.delimiter > other.delimiter {
		return 1
	}
	if t.delimiter < other.delimiter {
		return -1
	}
	return 0
}

// After 当 t 严格晚于 other 时返回 true。
func (t Ticket) After(other Ticket) bool {
	return t.Compare(other) > 0
}

// Equal 当两个 ticket 相同时返回 true。
func (t Ticket) Equal(other Ticket) bool {
	return t == other
}

// Key 返回可用作存储键的字符串。
func (t Ticket) Key() string {
	return fmt.Sprintf("%d:%s:%d", t.lamport, t.actorID.String(), t.delimiter)
}

// String 返回调试用的短格式，例如 "3:a1:0"。
func (t Ticket) String() string {
	return fmt.Sprintf("%d:%s:%d", t.lamport, t.actorID.Short(), t.delimiter)
}

// Max 返回两者中较晚的 ticket。
func Max(a, b Ticket) Ticket {
	if a.After(b) {
		return a
	}
	return b
}
