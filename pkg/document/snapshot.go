package document

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/shinyes/yep_text/pkg/change"
	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/ticket"
)

type progressState struct {
	Actor     []byte `msgpack:"a"`
	ClientSeq uint32 `msgpack:"s"`
	Lamport   uint64 `msgpack:"l"`

	Known change.VersionVector `msgpack:"k,omitempty"`
}

type snapshotState struct {
	Root     []byte          `msgpack:"r"`
	Progress []progressState `msgpack:"p"`
}

// Snapshot 编码文档的根以及每个 actor 的应用进度。未发送的本地 Change 不包含在内。
func (d *Document) Snapshot() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	root, err := crdt.EncodeRoot(d.root)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", d.key, err)
	}

	state := snapshotState{Root: root}
	for actorID, clientSeq := range d.checkpoints {
		state.Progress = append(state.Progress, progressState{
			Actor:     actorID.Bytes(),
			ClientSeq: clientSeq,
			Lamport:   d.versionVector.Get(actorID),
			Known:     d.knownVectors[actorID],
		})
	}
	return msgpack.Marshal(&state)
}

// FromSnapshot 从快照恢复文档。actorID 与快照的生成者相同时，本地序号从快照处继续。
func FromSnapshot(key string, actorID ticket.ActorID, data []byte, opts ...Option) (*Document, error) {
	var state snapshotState
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return nil, &crdt.InvalidDataError{Reason: err.Error(), DataLength: len(data)}
	}

	root, err := crdt.DecodeRoot(state.Root)
	if err != nil {
		return nil, err
	}

	d := New(key, actorID, opts...)
	d.root = root
	for _, p := range state.Progress {
		progressActor, err := ticket.ActorIDFromBytes(p.Actor)
		if err != nil {
			return nil, &crdt.InvalidDataError{Reason: err.Error(), DataLength: len(data)}
		}
		d.checkpoints[progressActor] = p.ClientSeq
		d.versionVector.Set(progressActor, p.Lamport)
		d.clock.Observe(p.Lamport)
		if len(p.Known) > 0 && progressActor != actorID {
			d.knownVectors[progressActor] = p.Known
		}
	}
	d.changeID = change.NewID(d.checkpoints[actorID], d.versionVector.Get(actorID), actorID)
	return d, nil
}
