package crdt

import (
	"errors"
	"testing"
)

// TestInvalidDataError 测试InvalidDataError错误类型
func TestInvalidDataError(t *testing.T) {
	tests := []struct {
		name        string
		crdtType    Type
		reason      string
		dataLength  int
		wantMessage string
	}{
		{
			name:        "empty data",
			crdtType:    TypeText,
			reason:      "data为空",
			dataLength:  0,
			wantMessage: "无效的 CRDT 数据: 类型 1, 原因: data为空, 数据长度: 0",
		},
		{
			name:        "invalid length",
			crdtType:    TypeCounter,
			reason:      "数据不足",
			dataLength:  5,
			wantMessage: "无效的 CRDT 数据: 类型 2, 原因: 数据不足, 数据长度: 5",
		},
		{
			name:        "negative data length",
			crdtType:    TypeText,
			reason:      "解析失败",
			dataLength:  -1,
			wantMessage: "无效的 CRDT 数据: 类型 1, 原因: 解析失败",
		},
		{
			name:        "no reason",
			crdtType:    TypeCounter,
			reason:      "",
			dataLength:  100,
			wantMessage: "无效的 CRDT 数据: 类型 2, 数据长度: 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &InvalidDataError{
				CRDTType:   tt.crdtType,
				Reason:     tt.reason,
				DataLength: tt.dataLength,
			}

			if got := err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
			if unwrapped := errors.Unwrap(err); unwrapped != ErrInvalidData {
				t.Errorf("Unwrap() = %v, want ErrInvalidData", unwrapped)
			}
			if !errors.Is(err, ErrInvalidData) {
				t.Error("errors.Is(err, ErrInvalidData) should be true")
			}
		})
	}
}

// TestNewInvalidDataError 测试NewInvalidDataError构造函数
func TestNewInvalidDataError(t *testing.T) {
	err := NewInvalidDataError(TypeText, "测试错误")

	if err.CRDTType != TypeText {
		t.Errorf("CRDTType = %d, want %d", err.CRDTType, TypeText)
	}
	if err.Reason != "测试错误" {
		t.Errorf("Reason = %q, want %q", err.Reason, "测试错误")
	}
	if err.DataLength != -1 {
		t.Errorf("DataLength = %d, want -1", err.DataLength)
	}
}

func TestFatalPanicsWithWrappedSentinel(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected panic with error, got %v", r)
		}
		if !errors.Is(err, ErrNotInitialized) {
			t.Fatalf("expected ErrNotInitialized, got %v", err)
		}
	}()

	fatal(ErrNotInitialized, "counter %s", "c1")
}
