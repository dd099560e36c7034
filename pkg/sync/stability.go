// Package sync 负责副本之间的稳定性跟踪和墓碑回收调度。
package sync

import (
	"math"
	"sync"

	"github.com/shinyes/yep_text/pkg/change"
	"github.com/shinyes/yep_text/pkg/ticket"
)

// VersionSource 是计算稳定 ticket 时需要的文档视图，*document.Document 实现了它。
type VersionSource interface {
	ActorID() ticket.ActorID
	KnownVersionVector(actorID ticket.ActorID) change.VersionVector
}

// StabilityTracker 记录参与协同的副本集合，并据此为每个文档计算稳定 ticket。
//
// 文档确知某个副本已经应用过的版本向量来自该副本最近一个被这个文档应用的 Change，
// 该副本尚未送达的 Change 都在它之后生成。所有成员的这些版本向量逐项取最小、
// 再在所有 actor 上取最小得到稳定 lamport，缺失的记录按 0 计。
// 所有副本此后生成的 Change 都已经看到 lamport 不大于它的全部 Change，
// 因此在它之前移除的墓碑不会再被引用。
type StabilityTracker struct {
	mu       sync.RWMutex
	replicas map[ticket.ActorID]struct{}
}

// NewStabilityTracker 创建空的跟踪器。
func NewStabilityTracker() *StabilityTracker {
	return &StabilityTracker{
		replicas: make(map[ticket.ActorID]struct{}),
	}
}

// Join 把副本加入成员集合。
func (t *StabilityTracker) Join(replica ticket.ActorID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.replicas[replica] = struct{}{}
}

// Forget 移除一个永久离开的副本，它不再限制稳定 ticket。
func (t *StabilityTracker) Forget(replica ticket.ActorID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.replicas, replica)
}

// Replicas 返回成员数量。
func (t *StabilityTracker) Replicas() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.replicas)
}

func (t *StabilityTracker) members(self ticket.ActorID) []ticket.ActorID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members := make([]ticket.ActorID, 0, len(t.replicas)+1)
	members = append(members, self)
	for replica := range t.replicas {
		if replica != self {
			members = append(members, replica)
		}
	}
	return members
}

// Stable 返回 src 的稳定 ticket，src 自己总是成员。
// 还没有任何 actor 的记录时返回 InitialTicket，什么都不会被回收。
func (t *StabilityTracker) Stable(src VersionSource) ticket.Ticket {
	members := t.members(src.ActorID())
	vectors := make([]change.VersionVector, 0, len(members))
	actors := make(map[ticket.ActorID]struct{})
	for _, member := range members {
		vv := src.KnownVersionVector(member)
		vectors = append(vectors, vv)
		for actorID := range vv {
			actors[actorID] = struct{}{}
		}
	}
	if len(actors) == 0 {
		return ticket.InitialTicket
	}

	minLamport := uint64(math.MaxUint64)
	for _, vv := range vectors {
		for actorID := range actors {
			if l := vv.Get(actorID); l < minLamport {
				minLamport = l
			}
		}
	}
	if minLamport == 0 {
		return ticket.InitialTicket
	}
	return ticket.New(minLamport, ticket.MaxActorID, math.MaxUint32)
}
