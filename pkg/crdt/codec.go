package crdt

import (
	"fmt"
	"math/big"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/shinyes/yep_text/pkg/ticket"
)

type nodeState struct {
	CreatedAt ticket.Ticket  `msgpack:"c"`
	Offset    int            `msgpack:"o"`
	Value     string         `msgpack:"v"`
	RemovedAt *ticket.Ticket `msgpack:"r,omitempty"`
}

type elementState struct {
	Key       string         `msgpack:"k,omitempty"`
	Type      Type           `msgpack:"t"`
	CreatedAt ticket.Ticket  `msgpack:"c"`
	RemovedAt *ticket.Ticket `msgpack:"r,omitempty"`

	Nodes []nodeState `msgpack:"n,omitempty"`

	NumericKind NumericKind `msgpack:"nk,omitempty"`
	Sum         string      `msgpack:"s,omitempty"`
	NonFinite   uint8       `msgpack:"nf,omitempty"`
}

type rootState struct {
	Elements []elementState `msgpack:"e"`
}

// EncodeRoot 把注册表编码为快照。墓碑和节点 ID 都会保留，选区不保留。
func EncodeRoot(r *Root) ([]byte, error) {
	keyOf := make(map[ticket.Ticket]string, len(r.keys))
	for key, createdAt := range r.keys {
		keyOf[createdAt] = key
	}

	state := rootState{}
	for _, elem := range r.Elements() {
		es := elementState{
			Key:       keyOf[elem.CreatedAt()],
			Type:      elem.Type(),
			CreatedAt: elem.CreatedAt(),
			RemovedAt: elem.RemovedAt(),
		}

		switch e := elem.(type) {
		case *Text:
			for _, node := range e.rgaTreeSplit.Nodes() {
				es.Nodes = append(es.Nodes, nodeState{
					CreatedAt: node.id.createdAt,
					Offset:    node.id.offset,
					Value:     node.value.String(),
					RemovedAt: node.removedAt,
				})
			}
		case *Counter:
			es.NumericKind = e.kind
			es.Sum = e.sum.RatString()
			es.NonFinite = e.nonFinite
		default:
			return nil, fmt.Errorf("encode element %T: %w", elem, ErrUnsupportedType)
		}

		state.Elements = append(state.Elements, es)
	}

	return msgpack.Marshal(&state)
}

// DecodeRoot 解码 EncodeRoot 生成的快照。
func DecodeRoot(data []byte) (*Root, error) {
	var state rootState
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return nil, &InvalidDataError{Reason: err.Error(), DataLength: len(data)}
	}

	root := NewRoot()
	for _, es := range state.Elements {
		var elem Element
		switch es.Type {
		case TypeText:
			rga := NewRGATreeSplit(NewTextValue(""))
			for _, ns := range es.Nodes {
				if ns.Offset < 0 {
					return nil, &InvalidDataError{CRDTType: TypeText, Reason: "negative node offset", DataLength: len(data)}
				}
				rga.appendNode(NewNodeID(ns.CreatedAt, ns.Offset), NewTextValue(ns.Value), ns.RemovedAt)
			}
			rga.relinkInsertions()
			elem = newTextWith(es.CreatedAt, rga)
		case TypeCounter:
			counter, err := decodeCounter(es)
			if err != nil {
				return nil, &InvalidDataError{CRDTType: TypeCounter, Reason: err.Error(), DataLength: len(data)}
			}
			elem = counter
		default:
			return nil, &InvalidDataError{CRDTType: es.Type, Reason: "unknown element type", DataLength: len(data)}
		}

		if es.RemovedAt != nil {
			elem.Remove(*es.RemovedAt)
		}
		root.elements[es.CreatedAt] = elem
		if es.Key != "" {
			root.keys[es.Key] = es.CreatedAt
		}
	}

	return root, nil
}

func decodeCounter(es elementState) (*Counter, error) {
	sum := new(big.Rat)
	if es.Sum != "" {
		if _, ok := sum.SetString(es.Sum); !ok {
			return nil, fmt.Errorf("invalid counter sum %q", es.Sum)
		}
	}
	if es.NumericKind != NumericInt && es.NumericKind != NumericFloat {
		return nil, fmt.Errorf("invalid numeric kind %d", es.NumericKind)
	}
	return &Counter{
		createdAt: es.CreatedAt,
		kind:      es.NumericKind,
		sum:       sum,
		nonFinite: es.NonFinite,
	}, nil
}
