package crdt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIndexOutOfRange 表示偏移超出了可见长度，或位置超出了节点内容。
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNodeNotFound 表示位置引用了本副本不存在的节点。
	ErrNodeNotFound = errors.New("node not found")

	// ErrUnsupportedType 表示计数器的操作数不是数值类型。
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNotInitialized 表示元素在初始化之前被使用。这是编程错误，以 panic 抛出。
	ErrNotInitialized = errors.New("element is not initialized")

	// ErrRequiresProxy 表示直接调用了没有 ticket 的入口。这是编程错误，以 panic 抛出。
	ErrRequiresProxy = errors.New("must be called through a transactional proxy")

	// ErrInvalidData 表示快照数据无法解码。
	ErrInvalidData = errors.New("无效的 CRDT 数据")
)

// InvalidDataError 描述了解码失败的快照数据。
type InvalidDataError struct {
	CRDTType   Type
	Reason     string
	DataLength int // -1 表示未知
}

// NewInvalidDataError 创建一个不带数据长度的 InvalidDataError。
func NewInvalidDataError(t Type, reason string) *InvalidDataError {
	return &InvalidDataError{CRDTType: t, Reason: reason, DataLength: -1}
}

func (e *InvalidDataError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s: 类型 %d", ErrInvalidData.Error(), e.CRDTType))
	if e.Reason != "" {
		b.WriteString(", 原因: " + e.Reason)
	}
	if e.DataLength >= 0 {
		b.WriteString(fmt.Sprintf(", 数据长度: %d", e.DataLength))
	}
	return b.String()
}

func (e *InvalidDataError) Unwrap() error {
	return ErrInvalidData
}

// fatal 以 panic 报告编程错误。panic 的值是包装了 sentinel 的 error，
// 调用方可以 recover 后用 errors.Is 区分。
func fatal(sentinel error, format string, args ...any) {
	panic(fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel))
}
