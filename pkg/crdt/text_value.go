package crdt

import (
	"unicode/utf8"
)

// TextValue 是文本节点的内容，长度按 rune 计算。
type TextValue struct {
	value string
}

// NewTextValue 创建文本内容。
func NewTextValue(value string) *TextValue {
	return &TextValue{value: value}
}

// Len 返回 rune 数量。
func (t *TextValue) Len() int {
	return utf8.RuneCountInString(t.value)
}

func (t *TextValue) String() string {
	return t.value
}

// Split 在第 offset 个 rune 处切分。按字节切分，非法的 UTF-8 字节原样保留，
// 每个非法字节计为一个 rune，与 Len 一致。
func (t *TextValue) Split(offset int) *TextValue {
	i := 0
	for n := 0; n < offset && i < len(t.value); n++ {
		_, size := utf8.DecodeRuneInString(t.value[i:])
		i += size
	}
	right := &TextValue{value: t.value[i:]}
	t.value = t.value[:i]
	return right
}

// DeepCopy 返回内容的副本。
func (t *TextValue) DeepCopy() *TextValue {
	return &TextValue{value: t.value}
}
