package change

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/shinyes/yep_text/pkg/ticket"
)

// VersionVector 记录从每个 actor 应用过的最大 lamport。
type VersionVector map[ticket.ActorID]uint64

// NewVersionVector 创建空的版本向量。
func NewVersionVector() VersionVector {
	return make(VersionVector)
}

// Set 在 lamport 更大时更新 actor 的记录。
func (v VersionVector) Set(actorID ticket.ActorID, lamport uint64) {
	if lamport > v[actorID] {
		v[actorID] = lamport
	}
}

// Get 返回 actor 的记录，没有记录时返回 0。
func (v VersionVector) Get(actorID ticket.ActorID) uint64 {
	return v[actorID]
}

// Merge 逐项取最大值。
func (v VersionVector) Merge(other VersionVector) {
	for actorID, lamport := range other {
		v.Set(actorID, lamport)
	}
}

// Descends 报告 v 是否包含 other 的所有记录。
func (v VersionVector) Descends(other VersionVector) bool {
	for actorID, lamport := range other {
		if v[actorID] < lamport {
			return false
		}
	}
	return true
}

// Copy 返回副本。
func (v VersionVector) Copy() VersionVector {
	clone := make(VersionVector, len(v))
	for actorID, lamport := range v {
		clone[actorID] = lamport
	}
	return clone
}

func (v VersionVector) String() string {
	parts := make([]string, 0, len(v))
	for actorID, lamport := range v {
		parts = append(parts, actorID.Short()+":"+strconv.FormatUint(lamport, 10))
	}
	sort.Strings(parts)
	return "[" + strings.Join(parts, ",") + "]"
}

type vectorEntry struct {
	Actor   []byte `msgpack:"a"`
	Lamport uint64 `msgpack:"l"`
}

// EncodeMsgpack 按 actor 排序编码为数组，相同的版本向量总是得到相同的字节。
func (v VersionVector) EncodeMsgpack(enc *msgpack.Encoder) error {
	entries := make([]vectorEntry, 0, len(v))
	for actorID, lamport := range v {
		entries = append(entries, vectorEntry{Actor: actorID.Bytes(), Lamport: lamport})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Actor, entries[j].Actor) < 0
	})
	return enc.Encode(entries)
}

// DecodeMsgpack 解码 EncodeMsgpack 的输出。
func (v *VersionVector) DecodeMsgpack(dec *msgpack.Decoder) error {
	var entries []vectorEntry
	if err := dec.Decode(&entries); err != nil {
		return err
	}

	vv := make(VersionVector, len(entries))
	for _, e := range entries {
		actorID, err := ticket.ActorIDFromBytes(e.Actor)
		if err != nil {
			return fmt.Errorf("decode version vector: %w", err)
		}
		vv.Set(actorID, e.Lamport)
	}
	*v = vv
	return nil
}
