package pool

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Manager 管理一组按类型命名的池，由服务启动时显式创建。
type Manager struct {
	mu     sync.RWMutex
	pools  map[Type]*Pool
	closed bool
}

// NewManager 创建空管理器
func NewManager() *Manager {
	return &Manager{pools: make(map[Type]*Pool)}
}

// NewDefaultManager 创建包含健康检查池与后台池的管理器。
func NewDefaultManager() (*Manager, error) {
	m := NewManager()
	if err := m.Register(HealthCheckPool, HealthCheckPoolConfig()); err != nil {
		return nil, err
	}
	if err := m.Register(BackgroundPool, BackgroundPoolConfig()); err != nil {
		m.ReleaseAll()
		return nil, err
	}
	return m, nil
}

// Register 注册新池
func (m *Manager) Register(typ Type, config *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrPoolClosed
	}
	if _, exists := m.pools[typ]; exists {
		return fmt.Errorf("%w: %s", ErrPoolAlreadyExists, typ)
	}

	p, err := NewPool(string(typ), typ, config)
	if err != nil {
		return err
	}
	m.pools[typ] = p
	return nil
}

// Get 获取池
func (m *Manager) Get(typ Type) (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrPoolClosed
	}
	p, ok := m.pools[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, typ)
	}
	return p, nil
}

// Stats 返回所有池的统计，按名称排序。
func (m *Manager) Stats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Stats, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ReleaseAll 释放所有池
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for _, p := range m.pools {
		p.Release()
	}
	m.pools = make(map[Type]*Pool)
}

// ReleaseAllTimeout 等待任务结束后释放所有池
func (m *Manager) ReleaseAllTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	var firstErr error
	for typ, p := range m.pools {
		if err := p.ReleaseTimeout(timeout); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("释放池 '%s' 超时: %w", typ, err)
		}
	}
	m.pools = make(map[Type]*Pool)
	return firstErr
}
