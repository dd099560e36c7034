package crdt

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/shinyes/yep_text/pkg/ticket"
)

// Root 是文档中元素的注册表：按 createdAt 索引所有元素，并维护顶层的键。
// 操作通过 createdAt 找到目标元素，因此键被覆盖后旧元素仍然可以被寻址。
type Root struct {
	elements map[ticket.Ticket]Element
	keys     map[string]ticket.Ticket
}

// NewRoot 创建空的注册表。
func NewRoot() *Root {
	return &Root{
		elements: make(map[ticket.Ticket]Element),
		keys:     make(map[string]ticket.Ticket),
	}
}

// Set 把元素注册到 key 下。key 上已有元素时，createdAt 较新的一方胜出，
// 落败的一方被标记为移除但仍保留在注册表中。返回 key 上最终的元素。
func (r *Root) Set(key string, elem Element) Element {
	r.elements[elem.CreatedAt()] = elem

	if prevAt, ok := r.keys[key]; ok && prevAt != elem.CreatedAt() {
		prev := r.elements[prevAt]
		if prevAt.After(elem.CreatedAt()) {
			elem.Remove(prevAt)
			return prev
		}
		prev.Remove(elem.CreatedAt())
	}
	r.keys[key] = elem.CreatedAt()
	return elem
}

// Get 返回 key 上的元素。
func (r *Root) Get(key string) (Element, bool) {
	createdAt, ok := r.keys[key]
	if !ok {
		return nil, false
	}
	elem, ok := r.elements[createdAt]
	return elem, ok
}

// FindByCreatedAt 按 createdAt 查找元素。
func (r *Root) FindByCreatedAt(createdAt ticket.Ticket) (Element, bool) {
	elem, ok := r.elements[createdAt]
	return elem, ok
}

// Keys 返回排序后的顶层键。
func (r *Root) Keys() []string {
	keys := make([]string, 0, len(r.keys))
	for k := range r.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Elements 返回所有注册的元素，包括被覆盖的。
func (r *Root) Elements() []Element {
	elems := make([]Element, 0, len(r.elements))
	for _, e := range r.elements {
		elems = append(elems, e)
	}
	sort.Slice(elems, func(i, j int) bool {
		return elems[i].CreatedAt().Compare(elems[j].CreatedAt()) < 0
	})
	return elems
}

// GarbageCollect 回收所有文本中 removedAt 不晚于 stable 的墓碑，返回回收的节点数。
func (r *Root) GarbageCollect(stable ticket.Ticket) int {
	count := 0
	for _, elem := range r.elements {
		if text, ok := elem.(*Text); ok {
			count += text.EvictTombstones(stable)
		}
	}
	return count
}

// TombstoneCount 返回所有文本中尚未回收的墓碑数量。
func (r *Root) TombstoneCount() int {
	count := 0
	for _, elem := range r.elements {
		if text, ok := elem.(*Text); ok {
			count += text.TombstoneCount()
		}
	}
	return count
}

// DeepCopy 复制所有元素。
func (r *Root) DeepCopy() *Root {
	clone := NewRoot()
	for createdAt, elem := range r.elements {
		clone.elements[createdAt] = elem.DeepCopy()
	}
	for key, createdAt := range r.keys {
		clone.keys[key] = createdAt
	}
	return clone
}

// Marshal 返回以键排序的 JSON 对象。
func (r *Root) Marshal() string {
	var b strings.Builder
	b.WriteString("{")
	for i, key := range r.Keys() {
		if i > 0 {
			b.WriteString(",")
		}
		elem, _ := r.Get(key)
		quoted, _ := json.Marshal(key)
		b.Write(quoted)
		b.WriteString(":")
		b.WriteString(elem.Marshal())
	}
	b.WriteString("}")
	return b.String()
}
