// Package safe 启动带 panic 恢复和计数的后台 goroutine
//
// 事件循环之外的 goroutine（WebSocket 读写、通知发送、HTTP 服务、客户端读取）
// 都通过这里启动，单个 goroutine 的 panic 不会让整个 broker 退出。
package safe

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	corelog "pubsub-core/internal/core/log"
)

var (
	activeCount atomic.Int64
	totalCount  atomic.Int64
	panicCount  atomic.Int64
)

// Stats goroutine 统计
type Stats struct {
	Active int64 `json:"active"`
	Total  int64 `json:"total"`
	Panics int64 `json:"panics"`
}

// GetStats 获取统计信息
func GetStats() Stats {
	return Stats{
		Active: activeCount.Load(),
		Total:  totalCount.Load(),
		Panics: panicCount.Load(),
	}
}

// Go 启动 goroutine，name 用于日志标识
func Go(name string, fn func()) {
	GoWithCallback(name, fn, nil)
}

// GoWithCallback 同 Go，panic 时在恢复后调用 onPanic
func GoWithCallback(name string, fn func(), onPanic func(recovered interface{})) {
	totalCount.Add(1)
	activeCount.Add(1)

	go func() {
		defer func() {
			activeCount.Add(-1)
			if r := recover(); r != nil {
				panicCount.Add(1)
				corelog.Errorf("SafeGo[%s]: panic recovered: %v\n%s", name, r, debug.Stack())
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}

// WaitGroup 跟踪一组 goroutine，Wait 等待全部退出
type WaitGroup struct {
	wg   sync.WaitGroup
	name string
}

// NewWaitGroup 创建 WaitGroup
func NewWaitGroup(name string) *WaitGroup {
	return &WaitGroup{name: name}
}

// Go 在组内启动 goroutine
func (w *WaitGroup) Go(fn func()) {
	w.wg.Add(1)
	Go(w.name, func() {
		defer w.wg.Done()
		fn()
	})
}

// Wait 等待组内所有 goroutine 完成
func (w *WaitGroup) Wait() {
	w.wg.Wait()
}
