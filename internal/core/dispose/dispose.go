// Package dispose 提供资源释放的统一机制
package dispose

import (
	"context"
	"fmt"
	"sync"

	corelog "pubsub-core/internal/core/log"
)

// DisposeError 清理过程中的错误信息
type DisposeError struct {
	HandlerIndex int
	ResourceName string
	Err          error
}

func (e *DisposeError) Error() string {
	if e.ResourceName != "" {
		return fmt.Sprintf("cleanup resource[%s] handler[%d] failed: %v", e.ResourceName, e.HandlerIndex, e.Err)
	}
	return fmt.Sprintf("cleanup handler[%d] failed: %v", e.HandlerIndex, e.Err)
}

func (e *DisposeError) Unwrap() error {
	return e.Err
}

// DisposeResult 清理结果
type DisposeResult struct {
	Errors []*DisposeError
}

func (r *DisposeResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *DisposeResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	return fmt.Sprintf("dispose cleanup failed with %d errors", len(r.Errors))
}

// Err 无错误时返回 nil，否则返回第一个错误
func (r *DisposeResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return r.Errors[0]
}

// Disposable 统一的资源释放接口
type Disposable interface {
	Dispose() error
}

// DisposeFunc 函数适配为 Disposable
type DisposeFunc func() error

func (f DisposeFunc) Dispose() error { return f() }

// Dispose 带上下文的资源管理结构体
// Close 只执行一次，清理处理器按注册的相反顺序执行
type Dispose struct {
	mu       sync.Mutex
	closed   bool
	ctx      context.Context
	cancel   context.CancelFunc
	handlers []func() error
	result   *DisposeResult
}

// New 创建 Dispose，onClose 可以为 nil
func New(parent context.Context, onClose func() error) *Dispose {
	if parent == nil {
		parent = context.Background()
	}
	d := &Dispose{}
	d.ctx, d.cancel = context.WithCancel(parent)
	if onClose != nil {
		d.handlers = append(d.handlers, onClose)
	}
	return d
}

// Ctx 返回生命周期上下文，Close 后被取消
func (d *Dispose) Ctx() context.Context {
	return d.ctx
}

func (d *Dispose) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// AddCleanHandler 添加清理处理器，已关闭时立即执行
func (d *Dispose) AddCleanHandler(f func() error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		if err := f(); err != nil {
			corelog.Errorf("Dispose: late cleanup handler failed: %v", err)
		}
		return
	}
	d.handlers = append(d.handlers, f)
	d.mu.Unlock()
}

// Close 取消上下文并执行清理处理器
func (d *Dispose) Close() *DisposeResult {
	d.mu.Lock()
	if d.closed {
		result := d.result
		d.mu.Unlock()
		return result
	}
	d.closed = true
	handlers := d.handlers
	d.handlers = nil
	d.mu.Unlock()

	d.cancel()

	result := &DisposeResult{}
	for i := len(handlers) - 1; i >= 0; i-- {
		if err := handlers[i](); err != nil {
			result.Errors = append(result.Errors, &DisposeError{HandlerIndex: i, Err: err})
			corelog.Errorf("Dispose: cleanup handler[%d] failed: %v", i, err)
		}
	}

	d.mu.Lock()
	d.result = result
	d.mu.Unlock()
	return result
}

// Dispose 实现 Disposable
func (d *Dispose) Dispose() error {
	return d.Close().Err()
}
