package biz

import (
	"context"
	"time"

	"github.com/kart-io/graphrag/pkg/component/storage"
	"github.com/kart-io/graphrag/pkg/infra/pool"
)

// 健康状态取值。
const (
	ComponentHealthy = "healthy"
	ComponentDown    = "down"
	OverallHealthy   = "healthy"
	OverallUnhealthy = "unhealthy"
)

// ComponentStatus 单个依赖的探测结果。
type ComponentStatus struct {
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Details map[string]any `json:"details"`
}

// HealthReport 全系统健康报告。
type HealthReport struct {
	Timestamp     string            `json:"timestamp"`
	OverallStatus string            `json:"overall_status"`
	Components    []ComponentStatus `json:"components"`
}

// Healthy reports whether every component is up.
func (r HealthReport) Healthy() bool {
	return r.OverallStatus == OverallHealthy
}

// probe 把探测函数适配为 storage.Client。
type probe struct {
	name string
	ping func(ctx context.Context) error
}

func (p probe) Name() string                   { return p.name }
func (p probe) Ping(ctx context.Context) error { return p.ping(ctx) }
func (p probe) Close() error                   { return nil }

// HealthService 并发探测所有依赖。
type HealthService struct {
	probes  *storage.Manager
	pool    *pool.Pool
	timeout time.Duration
	now     func() time.Time
}

// NewHealthService 创建健康检查服务，p 为探测使用的协程池，可为 nil。
func NewHealthService(p *pool.Pool, timeout time.Duration) *HealthService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthService{probes: storage.NewManager(), pool: p, timeout: timeout, now: time.Now}
}

// AddProbe 注册依赖，name 为报告中的组件名，按注册顺序输出。
func (h *HealthService) AddProbe(name string, ping func(ctx context.Context) error) error {
	return h.probes.Register(name, probe{name: name, ping: ping})
}

// Check 探测所有依赖，任一失败即整体不健康。
func (h *HealthService) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	statuses := h.probes.HealthCheckAll(ctx, h.pool)
	report := HealthReport{
		Timestamp:     h.now().Format(time.RFC3339),
		OverallStatus: OverallHealthy,
		Components:    make([]ComponentStatus, 0, len(statuses)),
	}
	for _, s := range statuses {
		c := ComponentStatus{
			Name:    s.Name,
			Status:  ComponentHealthy,
			Details: map[string]any{"latency_ms": s.Latency.Milliseconds()},
		}
		if !s.Healthy {
			c.Status = ComponentDown
			c.Details["error"] = s.Error.Error()
			report.OverallStatus = OverallUnhealthy
		}
		report.Components = append(report.Components, c)
	}
	return report
}
