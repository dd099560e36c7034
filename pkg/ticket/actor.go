package ticket

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// ActorIDSize 是 ActorID 的字节长度。
const ActorIDSize = 16

// ActorID 标识一个副本 (actor)。它是定长的，可以直接作为 map 的键。
type ActorID [ActorIDSize]byte

var (
	// InitialActorID 是最小的 ActorID，用于哨兵 ticket。
	InitialActorID = ActorID{}

	// MaxActorID 是最大的 ActorID，用于哨兵 ticket。
	MaxActorID = ActorID{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}
)

// NewActorID 生成一个新的 ActorID (UUIDv7，按创建时间大致有序)。
func NewActorID() (ActorID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return InitialActorID, fmt.Errorf("generate uuidv7: %w", err)
	}
	return ActorID(id), nil
}

// ActorIDFromString 解析 UUID 字符串形式的 ActorID。
func ActorIDFromString(s string) (ActorID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return InitialActorID, fmt.Errorf("parse actor id %q: %w", s, err)
	}
	return ActorID(id), nil
}

// ActorIDFromBytes 从 16 字节切片构造 ActorID。
func ActorIDFromBytes(b []byte) (ActorID, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return InitialActorID, fmt.Errorf("actor id from bytes: %w", err)
	}
	return ActorID(id), nil
}

// String 返回 UUID 形式的字符串。
func (a ActorID) String() string {
	return uuid.UUID(a).String()
}

// Short 返回最后一个字节的两位十六进制表示，用于调试输出。
func (a ActorID) Short() string {
	return fmt.Sprintf("%02x", a[ActorIDSize-1])
}

// Compare 按字节序比较两个 ActorID。
func (a ActorID) Compare(other ActorID) int {
	return bytes.Compare(a[:], other[:])
}

// Bytes 返回 ActorID 的字节副本。
func (a ActorID) Bytes() []byte {
	b := make([]byte, ActorIDSize)
	copy(b, a[:])
	return b
}
