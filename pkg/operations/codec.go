package operations

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/ticket"
)

type kind uint8

const (
	kindSet kind = iota + 1
	kindEdit
	kindSelect
	kindIncrease
)

type posState struct {
	CreatedAt      ticket.Ticket `msgpack:"c"`
	Offset         int           `msgpack:"o"`
	RelativeOffset int           `msgpack:"r"`
}

type seenState struct {
	Actor     []byte        `msgpack:"a"`
	CreatedAt ticket.Ticket `msgpack:"c"`
}

type operationState struct {
	Kind       kind          `msgpack:"k"`
	ExecutedAt ticket.Ticket `msgpack:"t"`
	Parent     ticket.Ticket `msgpack:"p"`

	Key         string    `msgpack:"key,omitempty"`
	ElementType crdt.Type `msgpack:"et,omitempty"`

	From    posState    `msgpack:"f"`
	To      posState    `msgpack:"to"`
	Seen    []seenState `msgpack:"s,omitempty"`
	Content string      `msgpack:"v,omitempty"`

	NumericKind crdt.NumericKind `msgpack:"nk,omitempty"`
	Int         int64            `msgpack:"i,omitempty"`
	Float       float64          `msgpack:"fl,omitempty"`
}

// Encode 把操作编码为 msgpack。
func Encode(op Operation) ([]byte, error) {
	state := operationState{ExecutedAt: op.ExecutedAt()}

	switch o := op.(type) {
	case *Set:
		state.Kind = kindSet
		state.Key = o.key
		state.ElementType = o.elementType
		state.Content = o.initialText
		setNumeric(&state, o.initialNum)
	case *Edit:
		state.Kind = kindEdit
		state.Parent = o.parentCreatedAt
		state.From = toPosState(o.from)
		state.To = toPosState(o.to)
		state.Content = o.content
		state.Seen = toSeenState(o.seen)
	case *Select:
		state.Kind = kindSelect
		state.Parent = o.parentCreatedAt
		state.From = toPosState(o.from)
		state.To = toPosState(o.to)
	case *Increase:
		state.Kind = kindIncrease
		state.Parent = o.parentCreatedAt
		setNumeric(&state, o.value)
	default:
		return nil, fmt.Errorf("encode operation %T: %w", op, crdt.ErrUnsupportedType)
	}

	return msgpack.Marshal(&state)
}

// Decode 解码 Encode 的输出。
func Decode(data []byte) (Operation, error) {
	var state operationState
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}

	switch state.Kind {
	case kindSet:
		if state.ElementType == crdt.TypeCounter {
			return NewSetCounter(state.Key, numericOf(state), state.ExecutedAt), nil
		}
		return NewSetText(state.Key, state.Content, state.ExecutedAt), nil
	case kindEdit:
		seen, err := fromSeenState(state.Seen)
		if err != nil {
			return nil, err
		}
		return NewEdit(state.Parent, fromPosState(state.From), fromPosState(state.To), seen, state.Content, state.ExecutedAt), nil
	case kindSelect:
		return NewSelect(state.Parent, fromPosState(state.From), fromPosState(state.To), state.ExecutedAt), nil
	case kindIncrease:
		return NewIncrease(state.Parent, numericOf(state), state.ExecutedAt), nil
	default:
		return nil, fmt.Errorf("decode operation kind %d: %w", state.Kind, crdt.ErrInvalidData)
	}
}

func setNumeric(state *operationState, n crdt.Numeric) {
	state.NumericKind = n.Kind()
	if n.Kind() == crdt.NumericFloat {
		state.Float = n.Float()
	} else {
		state.Int = n.Int()
	}
}

func numericOf(state operationState) crdt.Numeric {
	if state.NumericKind == crdt.NumericFloat {
		return crdt.FloatValue(state.Float)
	}
	return crdt.IntValue(state.Int)
}

func toPosState(p crdt.Pos) posState {
	return posState{
		CreatedAt:      p.ID().CreatedAt(),
		Offset:         p.ID().Offset(),
		RelativeOffset: p.RelativeOffset(),
	}
}

func fromPosState(s posState) crdt.Pos {
	return crdt.NewPos(crdt.NewNodeID(s.CreatedAt, s.Offset), s.RelativeOffset)
}

// toSeenState 按 actor 排序，保证编码结果稳定。
func toSeenState(seen map[ticket.ActorID]ticket.Ticket) []seenState {
	states := make([]seenState, 0, len(seen))
	for actorID, createdAt := range seen {
		states = append(states, seenState{Actor: actorID.Bytes(), CreatedAt: createdAt})
	}
	sort.Slice(states, func(i, j int) bool {
		return bytes.Compare(states[i].Actor, states[j].Actor) < 0
	})
	return states
}

func fromSeenState(states []seenState) (map[ticket.ActorID]ticket.Ticket, error) {
	seen := make(map[ticket.ActorID]ticket.Ticket, len(states))
	for _, s := range states {
		actorID, err := ticket.ActorIDFromBytes(s.Actor)
		if err != nil {
			return nil, fmt.Errorf("decode seen map: %w", err)
		}
		seen[actorID] = s.CreatedAt
	}
	return seen, nil
}
