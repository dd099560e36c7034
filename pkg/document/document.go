// Package document 提供协同文档：事务性的本地更新、远端 Change 的幂等应用、
// 墓碑回收和快照。
package document

import (
	"fmt"
	"log"
	"sync"

	"github.com/shinyes/yep_text/pkg/change"
	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/hlc"
	"github.com/shinyes/yep_text/pkg/ticket"
)

// Option 配置 Document。
type Option func(*Document)

// WithClock 指定 lamport 的来源，默认使用新的混合逻辑时钟。
func WithClock(clock *hlc.Clock) Option {
	return func(d *Document) {
		d.clock = clock
	}
}

// Document 是一个副本上的协同文档。
//
// Update、ApplyChanges、GarbageCollect 和 Snapshot 互斥执行。文本的变化监听器
// 在持有文档锁时被调用，监听器内不能再调用 Document 的方法。
type Document struct {
	mu sync.Mutex

	key     string
	actorID ticket.ActorID
	clock   *hlc.Clock
	root    *crdt.Root

	changeID      change.ID
	checkpoints   map[ticket.ActorID]uint32
	versionVector change.VersionVector
	localChanges  []*change.Change

	// 每个远端 actor 最近一个已应用 Change 携带的版本向量
	knownVectors map[ticket.ActorID]change.VersionVector
}

// New 创建空文档。
func New(key string, actorID ticket.ActorID, opts ...Option) *Document {
	d := &Document{
		key:           key,
		actorID:       actorID,
		root:          crdt.NewRoot(),
		changeID:      change.InitialID(actorID),
		checkpoints:   make(map[ticket.ActorID]uint32),
		versionVector: change.NewVersionVector(),
		knownVectors:  make(map[ticket.ActorID]change.VersionVector),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.clock == nil {
		d.clock = hlc.New()
	}
	return d
}

// Key 返回文档的 key。
func (d *Document) Key() string {
	return d.key
}

// ActorID 返回本副本的 actor。
func (d *Document) ActorID() ticket.ActorID {
	return d.actorID
}

// Update 在事务中执行 updater。updater 操作的是根的克隆，返回 nil 时记录的
// 操作才会在真正的根上重放并生成一个本地 Change；返回错误时文档不变。
func (d *Document) Update(updater func(root *Object) error, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.changeID.Next(d.clock.Now())
	ctx := change.NewContext(id, message, d.root.DeepCopy())
	if err := updater(&Object{ctx: ctx}); err != nil {
		return err
	}
	if !ctx.HasOperations() {
		return nil
	}

	vv := d.versionVector.Copy()
	vv.Set(d.actorID, id.Lamport())
	c := ctx.ToChange(vv)
	if err := c.Execute(d.root); err != nil {
		return fmt.Errorf("commit change %s: %w", id, err)
	}

	d.changeID = id
	d.checkpoints[d.actorID] = id.ClientSeq()
	d.versionVector.Set(d.actorID, id.Lamport())
	d.localChanges = append(d.localChanges, c)
	return nil
}

// ApplyChanges 按顺序应用远端 Change。已经应用过的 Change 会被跳过，
// 同一 actor 的 Change 必须按 clientSeq 连续到达。
// 重放本副本自己持久化的 Change 时，本地序号随之推进。
//
// 每个 Change 先在根的克隆上执行，全部操作成功后才在真正的根上重放。返回错误时，
// 出错的 Change 及其之后的 Change 都没有产生任何效果，之前的 Change 已经应用。
func (d *Document) ApplyChanges(changes ...*change.Change) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var staged *crdt.Root
	for _, c := range changes {
		id := c.ID()
		checkpoint := d.checkpoints[id.ActorID()]
		if id.ClientSeq() <= checkpoint {
			log.Printf("[Document] %s: skip applied change %s", d.key, id)
			continue
		}
		if id.ClientSeq() != checkpoint+1 {
			return fmt.Errorf("change %s after clientSeq %d: %w", id, checkpoint, ErrChangeOutOfOrder)
		}

		if staged == nil {
			staged = d.root.DeepCopy()
		}
		if err := c.Execute(staged); err != nil {
			return fmt.Errorf("apply change %s: %w", id, err)
		}
		if err := c.Execute(d.root); err != nil {
			return fmt.Errorf("commit change %s: %w", id, err)
		}

		d.clock.Observe(id.Lamport())
		d.checkpoints[id.ActorID()] = id.ClientSeq()
		d.versionVector.Set(id.ActorID(), id.Lamport())
		if id.ActorID() == d.actorID {
			d.changeID = id
		} else if vv := c.VersionVector(); len(vv) > 0 {
			known, ok := d.knownVectors[id.ActorID()]
			if !ok {
				known = change.NewVersionVector()
				d.knownVectors[id.ActorID()] = known
			}
			known.Merge(vv)
		}
	}
	return nil
}

// PopLocalChanges 返回并清空尚未发送的本地 Change。
func (d *Document) PopLocalChanges() []*change.Change {
	d.mu.Lock()
	defer d.mu.Unlock()

	changes := d.localChanges
	d.localChanges = nil
	return changes
}

// VersionVector 返回本副本已应用的版本向量的副本。
func (d *Document) VersionVector() change.VersionVector {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.versionVector.Copy()
}

// KnownVersionVector 返回本副本确知 actorID 已经应用过的版本向量。
// 本副本自己返回当前的版本向量；其他 actor 返回它最近一个已应用 Change 携带的
// 版本向量，actorID 此后生成的 Change 都发生在这些 Change 之后。没有收到过
// actorID 的 Change 时返回空向量。
func (d *Document) KnownVersionVector(actorID ticket.ActorID) change.VersionVector {
	d.mu.Lock()
	defer d.mu.Unlock()

	if actorID == d.actorID {
		return d.versionVector.Copy()
	}
	if known, ok := d.knownVectors[actorID]; ok {
		return known.Copy()
	}
	return change.NewVersionVector()
}

// Text 返回 key 上的文本，用于注册监听器和读取内容。修改必须通过 Update。
func (d *Document) Text(key string) (*crdt.Text, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elem, ok := d.root.Get(key)
	if !ok {
		return nil, &ElementNotFoundError{Key: key}
	}
	text, ok := elem.(*crdt.Text)
	if !ok {
		return nil, &TypeMismatchError{Key: key, ExpectedType: crdt.TypeText, GotType: elem.Type()}
	}
	return text, nil
}

// ReadText 在持有文档锁时用 key 上的文本调用 fn。fn 只能读取文本。
func (d *Document) ReadText(key string, fn func(text *crdt.Text)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	elem, ok := d.root.Get(key)
	if !ok {
		return &ElementNotFoundError{Key: key}
	}
	text, ok := elem.(*crdt.Text)
	if !ok {
		return &TypeMismatchError{Key: key, ExpectedType: crdt.TypeText, GotType: elem.Type()}
	}
	fn(text)
	return nil
}

// Counter 返回 key 上计数器的当前值。
func (d *Document) Counter(key string) (crdt.Numeric, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elem, ok := d.root.Get(key)
	if !ok {
		return crdt.Numeric{}, &ElementNotFoundError{Key: key}
	}
	counter, ok := elem.(*crdt.Counter)
	if !ok {
		return crdt.Numeric{}, &TypeMismatchError{Key: key, ExpectedType: crdt.TypeCounter, GotType: elem.Type()}
	}
	return counter.Value(), nil
}

// GarbageCollect 回收 removedAt 不晚于 stable 的墓碑，返回回收的节点数。
// 调用方保证所有副本此后生成的 Change 都发生在 stable 之前的全部 Change 之后。
func (d *Document) GarbageCollect(stable ticket.Ticket) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.root.GarbageCollect(stable)
}

// TombstoneCount 返回尚未回收的墓碑数量。
func (d *Document) TombstoneCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.root.TombstoneCount()
}

// Marshal 返回文档的 JSON 投影。
func (d *Document) Marshal() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.root.Marshal()
}
