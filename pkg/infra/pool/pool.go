// Package pool 基于 ants 的协程池，承载健康检查与后台同步任务。
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Type 池类型。
type Type string

const (
	// HealthCheckPool 健康检查专用池
	HealthCheckPool Type = "health-check"
	// BackgroundPool 后台任务池（启动同步等）
	BackgroundPool Type = "background"
)

// Config 池配置。
type Config struct {
	// Capacity 最大并发 goroutine 数
	Capacity       int
	ExpiryDuration time.Duration
	PreAlloc       bool
	// Nonblocking 池满时 Submit 立即返回 ErrPoolOverload
	Nonblocking      bool
	MaxBlockingTasks int
	PanicHandler     func(any)
}

// HealthCheckPoolConfig 返回健康检查池配置
func HealthCheckPoolConfig() *Config {
	return &Config{
		Capacity:         16,
		ExpiryDuration:   30 * time.Second,
		PreAlloc:         true,
		Nonblocking:      true,
		MaxBlockingTasks: 10,
	}
}

// BackgroundPoolConfig 返回后台任务池配置
func BackgroundPoolConfig() *Config {
	return &Config{
		Capacity:         4,
		ExpiryDuration:   60 * time.Second,
		Nonblocking:      true,
		MaxBlockingTasks: 16,
	}
}

// Pool 对 ants.Pool 的封装，附带任务统计。
type Pool struct {
	name     string
	typ      Type
	pool     *ants.Pool
	config   *Config
	stats    counters
	closed   atomic.Bool
	closedMu sync.Mutex
}

type counters struct {
	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	panics    atomic.Int64
}

// Stats 池统计快照。
type Stats struct {
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Running   int    `json:"running"`
	Submitted int64  `json:"submitted"`
	Completed int64  `json:"completed"`
	Rejected  int64  `json:"rejected"`
	Panics    int64  `json:"panics"`
}

// NewPool 创建池。
func NewPool(name string, typ Type, config *Config) (*Pool, error) {
	if config == nil || config.Capacity <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPoolConfig, name)
	}

	p := &Pool{name: name, typ: typ, config: config}

	panicHandler := config.PanicHandler
	if panicHandler == nil {
		panicHandler = func(v any) {
			logger.Errorw("worker panic recovered", "pool", name, "panic", v)
		}
	}

	ap, err := ants.NewPool(config.Capacity,
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPreAlloc(config.PreAlloc),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithMaxBlockingTasks(config.MaxBlockingTasks),
		ants.WithPanicHandler(panicHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("创建 ants 池失败: %w", err)
	}
	p.pool = ap

	logger.Debugw("worker pool created", "name", name, "capacity", config.Capacity)
	return p, nil
}

// Name 返回池名称
func (p *Pool) Name() string { return p.name }

// Type 返回池类型
func (p *Pool) Type() Type { return p.typ }

// Submit 提交任务。
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	err := p.pool.Submit(func() {
		p.stats.submitted.Add(1)
		defer func() {
			if r := recover(); r != nil {
				p.stats.panics.Add(1)
				panic(r)
			}
			p.stats.completed.Add(1)
		}()
		task()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.rejected.Add(1)
			return ErrPoolOverload
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return err
	}
	return nil
}

// SubmitWithContext 提交任务，任务开始前 ctx 已取消则跳过。
func (p *Pool) SubmitWithContext(ctx context.Context, task func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Submit(func() {
		if ctx.Err() != nil {
			return
		}
		task()
	})
}

// Go 提交任务，池不可用时退化为直接启动 goroutine。
func (p *Pool) Go(task func()) {
	if p == nil {
		go task()
		return
	}
	if err := p.Submit(task); err != nil {
		logger.Debugw("pool submit failed, spawning goroutine", "pool", p.name, "error", err.Error())
		go task()
	}
}

// Release 关闭池
func (p *Pool) Release() {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()
	if p.closed.Swap(true) {
		return
	}
	p.pool.Release()
}

// ReleaseTimeout 等待运行中的任务结束后关闭池。
func (p *Pool) ReleaseTimeout(timeout time.Duration) error {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()
	if p.closed.Swap(true) {
		return nil
	}
	return p.pool.ReleaseTimeout(timeout)
}

// Stats 返回统计快照
func (p *Pool) Stats() Stats {
	return Stats{
		Name:      p.name,
		Capacity:  p.pool.Cap(),
		Running:   p.pool.Running(),
		Submitted: p.stats.submitted.Load(),
		Completed: p.stats.completed.Load(),
		Rejected:  p.stats.rejected.Load(),
		Panics:    p.stats.panics.Load(),
	}
}
