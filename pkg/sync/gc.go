package sync

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shinyes/yep_text/pkg/document"
)

const defaultGCInterval = time.Minute

// GCOption 配置 GCCoordinator。
type GCOption func(*GCCoordinator)

// WithGCInterval 设置回收间隔，非正值被忽略。
func WithGCInterval(interval time.Duration) GCOption {
	return func(gc *GCCoordinator) {
		if interval > 0 {
			gc.interval = interval
		}
	}
}

// GCCoordinator 定期用跟踪器为每个文档计算的稳定 ticket 回收已注册文档的墓碑。
type GCCoordinator struct {
	tracker  *StabilityTracker
	interval time.Duration

	mu        sync.Mutex
	documents map[string]*document.Document
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	// 统计信息
	stats struct {
		sync.RWMutex
		totalRuns       int64
		totalRemoved    int64
		lastRemoved     int
		lastRunDuration time.Duration
	}
}

// NewGCCoordinator 创建回收协调器。
func NewGCCoordinator(tracker *StabilityTracker, opts ...GCOption) *GCCoordinator {
	gc := &GCCoordinator{
		tracker:   tracker,
		interval:  defaultGCInterval,
		documents: make(map[string]*document.Document),
	}
	for _, opt := range opts {
		opt(gc)
	}
	return gc
}

// Register 注册需要回收的文档，同 key 的旧文档被替换。
func (gc *GCCoordinator) Register(doc *document.Document) {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	gc.documents[doc.Key()] = doc
}

// Unregister 取消注册。
func (gc *GCCoordinator) Unregister(key string) {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	delete(gc.documents, key)
}

// Start 启动后台回收循环，ctx 取消或调用 Stop 后退出。重复调用无效。
func (gc *GCCoordinator) Start(ctx context.Context) {
	gc.mu.Lock()
	if gc.cancel != nil {
		gc.mu.Unlock()
		return
	}
	gc.ctx, gc.cancel = context.WithCancel(ctx)
	gc.done = make(chan struct{})
	loopCtx, done := gc.ctx, gc.done
	gc.mu.Unlock()

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				log.Println("🛑 GC 已停止")
				return

			case <-ticker.C:
				gc.RunOnce()
			}
		}
	}()

	log.Printf("✅ GC 已启动: 间隔=%v", gc.interval)
}

// Stop 停止后台循环并等待它退出。
func (gc *GCCoordinator) Stop() {
	gc.mu.Lock()
	cancel, done := gc.cancel, gc.done
	gc.cancel, gc.done = nil, nil
	gc.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// RunOnce 立即执行一轮回收，返回回收的节点数。
func (gc *GCCoordinator) RunOnce() int {
	atomic.AddInt64(&gc.stats.totalRuns, 1)
	startTime := time.Now()

	gc.mu.Lock()
	docs := make([]*document.Document, 0, len(gc.documents))
	for _, doc := range gc.documents {
		docs = append(docs, doc)
	}
	gc.mu.Unlock()

	removed := 0
	for _, doc := range docs {
		stable := gc.tracker.Stable(doc)
		n := doc.GarbageCollect(stable)
		if n > 0 {
			log.Printf("[GC] %s: 清理=%d, 稳定点=%s", doc.Key(), n, stable)
		}
		removed += n
	}
	duration := time.Since(startTime)

	gc.stats.Lock()
	gc.stats.totalRemoved += int64(removed)
	gc.stats.lastRemoved = removed
	gc.stats.lastRunDuration = duration
	gc.stats.Unlock()

	if removed > 0 {
		log.Printf("✅ GC 完成 [耗时=%v]: 文档=%d, 清理=%d", duration, len(docs), removed)
	}
	return removed
}

// GetStats 获取 GC 统计信息
func (gc *GCCoordinator) GetStats() map[string]interface{} {
	gc.stats.RLock()
	defer gc.stats.RUnlock()

	return map[string]interface{}{
		"total_runs":        atomic.LoadInt64(&gc.stats.totalRuns),
		"total_removed":     gc.stats.totalRemoved,
		"last_removed":      gc.stats.lastRemoved,
		"last_run_duration": gc.stats.lastRunDuration.String(),
	}
}
