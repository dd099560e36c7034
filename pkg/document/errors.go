package document

import (
	"errors"
	"fmt"

	"github.com/shinyes/yep_text/pkg/crdt"
)

var (
	// ErrElementNotFound 表示顶层 key 上没有元素。
	ErrElementNotFound = errors.New("元素不存在")

	// ErrTypeMismatch 表示 key 上的元素类型与请求的类型不同。
	ErrTypeMismatch = errors.New("类型不匹配")

	// ErrChangeOutOfOrder 表示某个 actor 的 Change 没有按 clientSeq 顺序到达。
	ErrChangeOutOfOrder = errors.New("change out of order")
)

// ElementNotFoundError 表示 key 上没有元素。
type ElementNotFoundError struct {
	Key string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("键 '%s' 不存在", e.Key)
}

func (e *ElementNotFoundError) Unwrap() error {
	return ErrElementNotFound
}

// TypeMismatchError 表示 key 上的元素类型不是期望的类型。
type TypeMismatchError struct {
	Key          string
	ExpectedType crdt.Type
	GotType      crdt.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("类型不匹配: 键 '%s' 期望类型 %d, 得到类型 %d", e.Key, e.ExpectedType, e.GotType)
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}
