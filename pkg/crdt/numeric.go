package crdt

import (
	"fmt"
	"math"
	"strconv"
)

// NumericKind 区分整数和浮点数。
type NumericKind byte

const (
	NumericInt NumericKind = iota
	NumericFloat
)

// Numeric 是计数器使用的数值：整数加整数保持整数，只要有一方是浮点数结果就是浮点数。
type Numeric struct {
	kind NumericKind
	i    int64
	f    float64
}

// IntValue 创建整数。
func IntValue(v int64) Numeric {
	return Numeric{kind: NumericInt, i: v}
}

// FloatValue 创建浮点数。
func FloatValue(v float64) Numeric {
	return Numeric{kind: NumericFloat, f: v}
}

// NumericOf 把 Go 的数值类型转换为 Numeric。
// bool、字符串等非数值类型返回 ErrUnsupportedType。
func NumericOf(v any) (Numeric, error) {
	switch n := v.(type) {
	case Numeric:
		return n, nil
	case int:
		return IntValue(int64(n)), nil
	case int8:
		return IntValue(int64(n)), nil
	case int16:
		return IntValue(int64(n)), nil
	case int32:
		return IntValue(int64(n)), nil
	case int64:
		return IntValue(n), nil
	case uint:
		return uintValue(uint64(n))
	case uint8:
		return IntValue(int64(n)), nil
	case uint16:
		return IntValue(int64(n)), nil
	case uint32:
		return IntValue(int64(n)), nil
	case uint64:
		return uintValue(n)
	case float32:
		return FloatValue(float64(n)), nil
	case float64:
		return FloatValue(n), nil
	default:
		return Numeric{}, fmt.Errorf("%T: %w", v, ErrUnsupportedType)
	}
}

func uintValue(v uint64) (Numeric, error) {
	if v > math.MaxInt64 {
		return Numeric{}, fmt.Errorf("%d overflows int64: %w", v, ErrUnsupportedType)
	}
	return IntValue(int64(v)), nil
}

// Kind 返回数值类型。
func (n Numeric) Kind() NumericKind {
	return n.kind
}

// Int 返回整数值，浮点数会被截断。
func (n Numeric) Int() int64 {
	if n.kind == NumericFloat {
		return int64(n.f)
	}
	return n.i
}

// Float 返回浮点值。
func (n Numeric) Float() float64 {
	if n.kind == NumericFloat {
		return n.f
	}
	return float64(n.i)
}

// Value 返回 int64 或 float64。
func (n Numeric) Value() any {
	if n.kind == NumericFloat {
		return n.f
	}
	return n.i
}

func (n Numeric) String() string {
	if n.kind == NumericFloat {
		return strconv.FormatFloat(n.f, 'g', -1, 64)
	}
	return strconv.FormatInt(n.i, 10)
}
