package change

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/shinyes/yep_text/pkg/operations"
	"github.com/shinyes/yep_text/pkg/ticket"
)

type changeState struct {
	ClientSeq  uint32   `msgpack:"s"`
	Lamport    uint64   `msgpack:"l"`
	Actor      []byte   `msgpack:"a"`
	Message    string   `msgpack:"m,omitempty"`
	Operations [][]byte `msgpack:"o"`

	VersionVector VersionVector `msgpack:"v,omitempty"`
}

// Encode 把 Change 编码为 msgpack。
func Encode(c *Change) ([]byte, error) {
	state := changeState{
		ClientSeq:  c.id.clientSeq,
		Lamport:    c.id.lamport,
		Actor:      c.id.actorID.Bytes(),
		Message:    c.message,
		Operations: make([][]byte, 0, len(c.operations)),

		VersionVector: c.versionVector,
	}
	for _, op := range c.operations {
		data, err := operations.Encode(op)
		if err != nil {
			return nil, fmt.Errorf("encode change %s: %w", c.id, err)
		}
		state.Operations = append(state.Operations, data)
	}
	return msgpack.Marshal(&state)
}

// Decode 解码 Encode 的输出。
func Decode(data []byte) (*Change, error) {
	var state changeState
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode change: %w", err)
	}

	actorID, err := ticket.ActorIDFromBytes(state.Actor)
	if err != nil {
		return nil, fmt.Errorf("decode change: %w", err)
	}

	ops := make([]operations.Operation, 0, len(state.Operations))
	for _, raw := range state.Operations {
		op, err := operations.Decode(raw)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	return New(NewID(state.ClientSeq, state.Lamport, actorID), state.Message, ops, state.VersionVector), nil
}
