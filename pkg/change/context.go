package change

import (
	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/operations"
	"github.com/shinyes/yep_text/pkg/ticket"
)

// Context 是一个事务的上下文：在克隆的 Root 上执行，签发 ticket 并记录操作。
type Context struct {
	id         ID
	message    string
	root       *crdt.Root
	operations []operations.Operation
	delimiter  uint32
}

// NewContext 创建事务上下文。
func NewContext(id ID, message string, root *crdt.Root) *Context {
	return &Context{id: id, message: message, root: root}
}

// IssueTicket 签发事务内的下一个 ticket。同一事务的 ticket 只有 delimiter 不同。
func (c *Context) IssueTicket() ticket.Ticket {
	c.delimiter++
	return c.id.NewTicket(c.delimiter)
}

// Push 记录一个已经在 Registry 上执行过的操作。
func (c *Context) Push(op operations.Operation) {
	c.operations = append(c.operations, op)
}

// Registry 返回事务使用的元素注册表。
func (c *Context) Registry() *crdt.Root {
	return c.root
}

// HasOperations 报告事务是否产生了操作。
func (c *Context) HasOperations() bool {
	return len(c.operations) > 0
}

// ToChange 把记录的操作打包成 Change，vv 是创建者提交时的版本向量。
func (c *Context) ToChange(vv VersionVector) *Change {
	return New(c.id, c.message, c.operations, vv)
}
