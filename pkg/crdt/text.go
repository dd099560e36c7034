package crdt

import (
	"encoding/json"
	"fmt"

	"github.com/shinyes/yep_text/pkg/ticket"
)

// ChangeListener 接收一次编辑或选区更新产生的可见变化。
type ChangeListener func(changes []TextChange)

// Text 是协同编辑的文本，内部是 RGATreeSplit 和按参与者记录的选区。
//
// 带 Internal 后缀的方法由事务代理或远端回放调用，必须带上 ticket；
// 没有 ticket 的 Edit/UpdateSelection 只用于提示调用方走代理，直接调用会 panic。
type Text struct {
	rgaTreeSplit *RGATreeSplit[*TextValue]
	selectionMap *SelectionMap
	createdAt    ticket.Ticket
	removedAt    *ticket.Ticket

	onChanges ChangeListener

	// notifying 在监听器运行期间为 true，期间监听器触发的选区更新会被忽略，
	// 防止编辑器把刚收到的变化再回写一次。
	notifying bool
}

// NewText 创建文本。initial 非空时作为一个 ID 为 (createdAt, 0) 的节点写入，
// 所以从同一个创建操作构造的副本拥有相同的节点。
func NewText(createdAt ticket.Ticket, initial string) *Text {
	rga := NewRGATreeSplit(NewTextValue(""))
	if initial != "" {
		rga.appendNode(NewNodeID(createdAt, 0), NewTextValue(initial), nil)
	}
	return newTextWith(createdAt, rga)
}

func newTextWith(createdAt ticket.Ticket, rga *RGATreeSplit[*TextValue]) *Text {
	return &Text{
		rgaTreeSplit: rga,
		selectionMap: newSelectionMap(rga),
		createdAt:    createdAt,
	}
}

// Type 返回 TypeText。
func (t *Text) Type() Type {
	return TypeText
}

// CreatedAt 返回文本的创建 ticket。
func (t *Text) CreatedAt() ticket.Ticket {
	return t.createdAt
}

// RemovedAt 返回文本的移除 ticket。
func (t *Text) RemovedAt() *ticket.Ticket {
	return t.removedAt
}

// Remove 标记文本被移除。
func (t *Text) Remove(removedAt ticket.Ticket) bool {
	return removeElement(&t.removedAt, removedAt)
}

// OnChanges 注册变化监听器，新的监听器替换旧的，传 nil 取消监听。
func (t *Text) OnChanges(listener ChangeListener) {
	t.onChanges = listener
}

// Edit 总是 panic：文本只能通过事务代理修改。
func (t *Text) Edit(from, to int, content string) {
	fatal(ErrRequiresProxy, "Text.Edit(%d, %d)", from, to)
}

// UpdateSelection 总是 panic：选区只能通过事务代理更新。
func (t *Text) UpdateSelection(from, to int) {
	fatal(ErrRequiresProxy, "Text.UpdateSelection(%d, %d)", from, to)
}

// CreateRange 把可见偏移转换为一对位置。
func (t *Text) CreateRange(from, to int) (Pos, Pos, error) {
	if from > to {
		return Pos{}, Pos{}, fmt.Errorf("range %d:%d: %w", from, to, ErrIndexOutOfRange)
	}
	fromPos, err := t.rgaTreeSplit.FindPos(from)
	if err != nil {
		return Pos{}, Pos{}, err
	}
	if from == to {
		return fromPos, fromPos, nil
	}
	toPos, err := t.rgaTreeSplit.FindPos(to)
	if err != nil {
		return Pos{}, Pos{}, err
	}
	return fromPos, toPos, nil
}

// EditInternal 用 content 替换 [from, to)，并把编辑者的选区移动到插入内容之后。
// seen 的含义见 RGATreeSplit.Edit。返回删除涉及的每个创建者的最大 createdAt，
// 远端副本回放这次编辑时需要它。
func (t *Text) EditInternal(
	from, to Pos,
	content string,
	editedAt ticket.Ticket,
	seen map[ticket.ActorID]ticket.Ticket,
) (map[ticket.ActorID]ticket.Ticket, error) {
	caret, seenByActor, changes, err := t.rgaTreeSplit.Edit(from, to, NewTextValue(content), editedAt, seen)
	if err != nil {
		return nil, err
	}

	selectionChange, err := t.selectionMap.Update(caret, caret, editedAt)
	if err != nil {
		return nil, err
	}
	if selectionChange != nil {
		changes = append(changes, *selectionChange)
	}

	t.notify(changes)
	return seenByActor, nil
}

// UpdateSelectionInternal 更新 updatedAt 所属参与者的选区。
// 监听器运行期间的调用被忽略。
func (t *Text) UpdateSelectionInternal(from, to Pos, updatedAt ticket.Ticket) error {
	if t.notifying {
		return nil
	}

	change, err := t.selectionMap.Update(from, to, updatedAt)
	if err != nil {
		return err
	}
	if change != nil {
		t.notify([]TextChange{*change})
	}
	return nil
}

// Selection 返回参与者的选区。
func (t *Text) Selection(actorID ticket.ActorID) (*Selection, bool) {
	return t.selectionMap.Get(actorID)
}

// SelectionRange 返回参与者选区对应的可见偏移。
func (t *Text) SelectionRange(actorID ticket.ActorID) (int, int, bool) {
	s, ok := t.selectionMap.Get(actorID)
	if !ok {
		return 0, 0, false
	}
	from, to, err := t.rgaTreeSplit.IndexesFromRange(s.from, s.to)
	if err != nil {
		return 0, 0, false
	}
	return from, to, true
}

// Len 返回可见长度(rune)。
func (t *Text) Len() int {
	return t.rgaTreeSplit.Len()
}

// String 返回可见内容。
func (t *Text) String() string {
	return t.rgaTreeSplit.String()
}

// AnnotatedString 返回包含节点 ID 和墓碑的调试表示。
func (t *Text) AnnotatedString() string {
	return t.rgaTreeSplit.AnnotatedString()
}

// Marshal 返回 JSON 字符串。
func (t *Text) Marshal() string {
	b, err := json.Marshal(t.String())
	if err != nil {
		return `""`
	}
	return string(b)
}

// TombstoneCount 返回尚未回收的墓碑数量。
func (t *Text) TombstoneCount() int {
	return t.rgaTreeSplit.TombstoneCount()
}

// EvictTombstones 回收 removedAt 不晚于 stable 的墓碑。
func (t *Text) EvictTombstones(stable ticket.Ticket) int {
	return t.rgaTreeSplit.EvictTombstones(stable)
}

// DeepCopy 复制内容、墓碑和选区，不复制监听器。
func (t *Text) DeepCopy() Element {
	rga := t.rgaTreeSplit.DeepCopy()
	clone := &Text{
		rgaTreeSplit: rga,
		selectionMap: t.selectionMap.deepCopy(rga),
		createdAt:    t.createdAt,
	}
	if t.removedAt != nil {
		removedAt := *t.removedAt
		clone.removedAt = &removedAt
	}
	return clone
}

func (t *Text) notify(changes []TextChange) {
	if len(changes) == 0 || t.onChanges == nil {
		return
	}

	t.notifying = true
	defer func() { t.notifying = false }()
	t.onChanges(changes)
}
