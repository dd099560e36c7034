package change

import (
	"fmt"

	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/operations"
)

// Change 是一个事务产生的操作序列。
//
// versionVector 是创建者生成这个 Change 时已经应用过的版本向量(包含它自己)，
// 接收方据此得知创建者此后的 Change 都发生在哪些 Change 之后。
type Change struct {
	id            ID
	message       string
	operations    []operations.Operation
	versionVector VersionVector
}

// New 创建 Change。
func New(id ID, message string, ops []operations.Operation, vv VersionVector) *Change {
	return &Change{id: id, message: message, operations: ops, versionVector: vv}
}

// ID 返回 Change 的 ID。
func (c *Change) ID() ID { return c.id }

// Message 返回提交说明。
func (c *Change) Message() string { return c.message }

// Operations 返回操作序列。
func (c *Change) Operations() []operations.Operation { return c.operations }

// VersionVector 返回创建者生成 Change 时的版本向量。
func (c *Change) VersionVector() VersionVector { return c.versionVector }

// Execute 按顺序在 root 上执行所有操作，遇到错误立即返回。
func (c *Change) Execute(root *crdt.Root) error {
	for i, op := range c.operations {
		if err := op.Execute(root); err != nil {
			return fmt.Errorf("change %s op %d: %w", c.id, i, err)
		}
	}
	return nil
}
