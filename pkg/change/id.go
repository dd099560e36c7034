// Package change 把一个事务中的操作打包成 Change，并负责签发事务内的 ticket。
package change

import (
	"fmt"

	"github.com/shinyes/yep_text/pkg/ticket"
)

// ID 标识一个 Change：clientSeq 是签发副本内的序号，lamport 是逻辑时间。
type ID struct {
	clientSeq uint32
	lamport   uint64
	actorID   ticket.ActorID
}

// InitialID 返回某个副本的初始 ID。
func InitialID(actorID ticket.ActorID) ID {
	return ID{actorID: actorID}
}

// NewID 创建 ID。
func NewID(clientSeq uint32, lamport uint64, actorID ticket.ActorID) ID {
	return ID{clientSeq: clientSeq, lamport: lamport, actorID: actorID}
}

// Next 返回下一个本地 Change 的 ID，lamport 取自时钟的读数。
func (id ID) Next(lamport uint64) ID {
	if lamport <= id.lamport {
		lamport = id.lamport + 1
	}
	return ID{clientSeq: id.clientSeq + 1, lamport: lamport, actorID: id.actorID}
}

// NewTicket 用 ID 的 lamport 和 actor 签发 ticket。
func (id ID) NewTicket(delimiter uint32) ticket.Ticket {
	return ticket.New(id.lamport, id.actorID, delimiter)
}

// ClientSeq 返回副本内序号。
func (id ID) ClientSeq() uint32 { return id.clientSeq }

// Lamport 返回逻辑时间。
func (id ID) Lamport() uint64 { return id.lamport }

// ActorID 返回签发副本。
func (id ID) ActorID() ticket.ActorID { return id.actorID }

func (id ID) String() string {
	return fmt.Sprintf("%d@%s:%d", id.lamport, id.actorID.Short(), id.clientSeq)
}
