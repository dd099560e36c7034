package ticket

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMsgpack 把 Ticket 编码为 [lamport, actor, delimiter]。
func (t Ticket) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(3); err != nil {
		return err
	}
	if err := enc.EncodeUint(t.lamport); err != nil {
		return err
	}
	if err := enc.EncodeBytes(t.actorID[:]); err != nil {
		return err
	}
	return enc.EncodeUint(uint64(t.delimiter))
}

// DecodeMsgpack 解码 EncodeMsgpack 的输出。
func (t *Ticket) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 3 {
		return fmt.Errorf("ticket: expected 3 fields, got %d", n)
	}

	lamport, err := dec.DecodeUint64()
	if err != nil {
		return err
	}
	raw, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	actorID, err := ActorIDFromBytes(raw)
	if err != nil {
		return err
	}
	delimiter, err := dec.DecodeUint32()
	if err != nil {
		return err
	}

	*t = New(lamport, actorID, delimiter)
	return nil
}
