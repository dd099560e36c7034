package hlc

import (
	"sync"
	"time"
)

// Clock 代表混合逻辑时钟，作为 ticket 的 lamport 来源。
// 它保证单调递增，并通过 Observe 吸收远程副本的时间戳来跟踪因果关系。
// 时间戳被打包为 uint64：
//   - 高 48 位：物理时间 (毫秒)，从 Unix Epoch 开始。
//   - 低 16 位：逻辑计数器。
type Clock struct {
	mu       sync.Mutex
	latest   uint64 // 当前已知的最大 HLC 时间戳 (packed)
	physical func() int64
}

const (
	logicalBits = 16
	logicalMask = 0xFFFF
)

// Option 自定义时钟。
type Option func(*Clock)

// WithPhysicalSource 替换物理时间来源 (毫秒)。测试中用于得到确定的时间戳。
func WithPhysicalSource(fn func() int64) Option {
	return func(c *Clock) {
		if fn != nil {
			c.physical = fn
		}
	}
}

// New 创建一个新的 HLC 时钟。
func New(opts ...Option) *Clock {
	c := &Clock{
		physical: func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now 返回当前的 HLC 时间戳，并更新内部状态。
// 返回值严格大于任何先前返回或观察到的时间戳。
func (c *Clock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	phys := uint64(c.physical())
	oldPhys, oldLogical := unpack(c.latest)

	newPhys, newLogical := phys, uint64(0)
	if phys <= oldPhys {
		newPhys = oldPhys
		newLogical = oldLogical + 1
	}

	c.latest = pack(newPhys, newLogical)
	return c.latest
}

// Observe 根据接收到的远程时间戳更新本地时钟。
// 之后的 Now 一定晚于 remote。
func (c *Clock) Observe(remote uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remote > c.latest {
		c.latest = remote
	}
}

// Latest 返回当前已知的最大时间戳，不推进时钟。
func (c *Clock) Latest() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

func pack(phys, logical uint64) uint64 {
	// 逻辑计数溢出时向物理时间进位
	if logical > logicalMask {
		phys++
		logical = 0
	}
	return phys<<logicalBits | logical
}

func unpack(ts uint64) (phys, logical uint64) {
	return ts >> logicalBits, ts & logicalMask
}

// Physical 返回时间戳的物理部分 (Unix Milli)。
func Physical(ts uint64) int64 {
	return int64(ts >> logicalBits)
}

// Logical 返回时间戳的逻辑部分。
func Logical(ts uint64) uint16 {
	return uint16(ts & logicalMask)
}
