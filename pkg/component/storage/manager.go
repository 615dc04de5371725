// Package storage 统一管理外部存储客户端的生命周期与健康检查。
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/graphrag/pkg/infra/pool"
)

// Client 外部依赖客户端的最小契约。
type Client interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error
}

// HealthStatus 单个客户端的探测结果。
type HealthStatus struct {
	Name    string
	Healthy bool
	Latency time.Duration
	Error   error
}

type entry struct {
	name   string
	client Client
}

// Manager 按注册顺序保存客户端，关闭时逆序释放。
// 可并发使用。
type Manager struct {
	mu      sync.RWMutex
	entries []entry
}

// NewManager 创建管理器
func NewManager() *Manager {
	return &Manager{}
}

// Register 注册客户端，name 用作健康检查中的组件名。
func (m *Manager) Register(name string, client Client) error {
	if name == "" || client == nil {
		return ErrInvalidClient
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.name == name {
			return fmt.Errorf("%w: %s", ErrClientAlreadyExists, name)
		}
	}
	m.entries = append(m.entries, entry{name: name, client: client})
	return nil
}

// Get 按名称获取客户端
func (m *Manager) Get(name string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.name == name {
			return e.client, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrClientNotFound, name)
}

// List 返回注册顺序的客户端名称
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.name
	}
	return names
}

// HealthCheckAll 并发探测所有客户端，结果按注册顺序返回。
// 探测任务提交到 p，p 为 nil 或已满时直接启动 goroutine。
func (m *Manager) HealthCheckAll(ctx context.Context, p *pool.Pool) []HealthStatus {
	m.mu.RLock()
	entries := make([]entry, len(m.entries))
	copy(entries, m.entries)
	m.mu.RUnlock()

	statuses := make([]HealthStatus, len(entries))
	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		p.Go(func() {
			defer wg.Done()
			start := time.Now()
			err := e.client.Ping(ctx)
			statuses[i] = HealthStatus{
				Name:    e.name,
				Healthy: err == nil,
				Latency: time.Since(start),
				Error:   err,
			}
		})
	}
	wg.Wait()
	return statuses
}

// CloseAll 逆序关闭所有客户端并清空注册表，返回第一个错误。
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if err := e.client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close client '%s': %w", e.name, err)
		}
	}
	m.entries = nil
	return firstErr
}
