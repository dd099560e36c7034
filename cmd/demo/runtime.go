package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/shinyes/yep_text/pkg/change"
	"github.com/shinyes/yep_text/pkg/document"
	"github.com/shinyes/yep_text/pkg/store"
	"github.com/shinyes/yep_text/pkg/ticket"
)

var actorKey = []byte("replica\x00actor")

// replica 是一个进程内副本：文档加上它自己的 Badger 存储。
// 副本应用过的每个 Change（本地的和收到的）都按应用顺序追加到自己的日志中。
type replica struct {
	name    string
	doc     *document.Document
	log     *store.ChangeLog
	seq     uint64
	cursors map[string]uint64
}

// openReplica 打开副本的存储，从快照和之后的日志恢复文档。
func openReplica(stores *store.MultiStore, name, docKey string) (*replica, error) {
	s, err := stores.Get(name)
	if err != nil {
		return nil, err
	}

	actorID, err := loadOrCreateActor(s)
	if err != nil {
		return nil, fmt.Errorf("replica %s: %w", name, err)
	}

	changeLog := store.NewChangeLog(s)
	var doc *document.Document
	snapshotSeq, data, err := changeLog.LoadSnapshot(docKey)
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
		doc = document.New(docKey, actorID)
	case err != nil:
		return nil, err
	default:
		if doc, err = document.FromSnapshot(docKey, actorID, data); err != nil {
			return nil, fmt.Errorf("replica %s: %w", name, err)
		}
	}

	changes, last, err := changeLog.LoadSince(docKey, snapshotSeq)
	if err != nil {
		return nil, err
	}
	if err := doc.ApplyChanges(changes...); err != nil {
		return nil, fmt.Errorf("replica %s: replay: %w", name, err)
	}
	log.Printf("[Demo] %s: restored actor %s, snapshot seq %d, replayed %d changes", name, actorID.Short(), snapshotSeq, len(changes))

	return &replica{
		name:    name,
		doc:     doc,
		log:     changeLog,
		seq:     last,
		cursors: make(map[string]uint64),
	}, nil
}

func loadOrCreateActor(s store.Store) (ticket.ActorID, error) {
	var actorID ticket.ActorID
	err := s.Update(func(tx store.Tx) error {
		raw, err := tx.Get(actorKey)
		if err == nil {
			actorID, err = ticket.ActorIDFromBytes(raw)
			return err
		}
		if !errors.Is(err, store.ErrKeyNotFound) {
			return err
		}
		if actorID, err = ticket.NewActorID(); err != nil {
			return err
		}
		return tx.Set(actorKey, actorID.Bytes())
	})
	return actorID, err
}

// update 执行本地事务并持久化生成的 Change。
func (r *replica) update(updater func(root *document.Object) error, message string) error {
	if err := r.doc.Update(updater, message); err != nil {
		return err
	}
	return r.persist(r.doc.PopLocalChanges())
}

func (r *replica) persist(changes []*change.Change) error {
	if len(changes) == 0 {
		return nil
	}
	seq, err := r.log.Append(r.doc.Key(), changes...)
	if err != nil {
		return err
	}
	r.seq = seq
	return nil
}

// pushTo 把 r 日志中 peer 尚未取走的 Change 发给 peer，返回 peer 新应用的数量。
// peer 已经应用过的 Change 不会写入 peer 的日志。
func (r *replica) pushTo(peer *replica) (int, error) {
	changes, last, err := r.log.LoadSince(r.doc.Key(), r.cursors[peer.name])
	if err != nil {
		return 0, err
	}

	known := peer.doc.VersionVector()
	fresh := make([]*change.Change, 0, len(changes))
	for _, c := range changes {
		if c.ID().Lamport() > known.Get(c.ID().ActorID()) {
			fresh = append(fresh, c)
			known.Set(c.ID().ActorID(), c.ID().Lamport())
		}
	}

	// 逐个应用，出错时已经应用的部分也要写入 peer 的日志
	applied := 0
	var applyErr error
	for _, c := range fresh {
		if applyErr = peer.doc.ApplyChanges(c); applyErr != nil {
			break
		}
		applied++
	}
	if err := peer.persist(fresh[:applied]); err != nil {
		return applied, err
	}
	if applyErr != nil {
		if errors.Is(applyErr, document.ErrChangeOutOfOrder) {
			return applied, fmt.Errorf("%w (%s 的日志已被快照压缩，请重置数据目录)", applyErr, r.name)
		}
		return applied, applyErr
	}
	r.cursors[peer.name] = last
	return len(fresh), nil
}

// snapshot 保存快照并压缩已覆盖的日志。
func (r *replica) snapshot() error {
	data, err := r.doc.Snapshot()
	if err != nil {
		return err
	}
	return r.log.SaveSnapshot(r.doc.Key(), r.seq, data)
}
