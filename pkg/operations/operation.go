// Package operations 定义可以在任意副本上回放的操作记录。
//
// 本地事务在克隆的 Root 上执行代理方法，同时记录操作；提交和远端同步
// 都通过 Execute 在真正的 Root 上重放这些操作。
package operations

import (
	"errors"
	"fmt"

	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/ticket"
)

var (
	// ErrTargetNotFound 表示操作引用的元素不存在。
	ErrTargetNotFound = errors.New("target element not found")

	// ErrTargetTypeMismatch 表示操作引用的元素类型不对。
	ErrTargetTypeMismatch = errors.New("target element type mismatch")
)

// Operation 是一次可回放的修改。
type Operation interface {
	// Execute 在 root 上应用操作。
	Execute(root *crdt.Root) error

	// ExecutedAt 返回操作的 ticket。
	ExecutedAt() ticket.Ticket
}

func findText(root *crdt.Root, parentCreatedAt ticket.Ticket) (*crdt.Text, error) {
	elem, ok := root.FindByCreatedAt(parentCreatedAt)
	if !ok {
		return nil, fmt.Errorf("text %s: %w", parentCreatedAt, ErrTargetNotFound)
	}
	text, ok := elem.(*crdt.Text)
	if !ok {
		return nil, fmt.Errorf("%s is %s, not Text: %w", parentCreatedAt, elem.Type(), ErrTargetTypeMismatch)
	}
	return text, nil
}

func findCounter(root *crdt.Root, parentCreatedAt ticket.Ticket) (*crdt.Counter, error) {
	elem, ok := root.FindByCreatedAt(parentCreatedAt)
	if !ok {
		return nil, fmt.Errorf("counter %s: %w", parentCreatedAt, ErrTargetNotFound)
	}
	counter, ok := elem.(*crdt.Counter)
	if !ok {
		return nil, fmt.Errorf("%s is %s, not Counter: %w", parentCreatedAt, elem.Type(), ErrTargetTypeMismatch)
	}
	return counter, nil
}
