// Package resilience 为 LLM 调用提供重试与熔断。
//
// 调用方的取消与超时既不重试，也不计入熔断失败次数：
// 一次被客户端放弃的请求不代表下游不可用。
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// ErrCircuitOpen 熔断器打开时返回。
var ErrCircuitOpen = errors.New("circuit breaker is open")

// RetryConfig 重试配置。
type RetryConfig struct {
	// MaxAttempts 最大尝试次数（包括首次调用）。
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Retryable 判断错误是否可重试，nil 时使用 IsRetryableError。
	Retryable func(error) bool
}

// DefaultRetryConfig 返回默认重试配置。
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Retryable:    IsRetryableError,
	}
}

// BreakerConfig 熔断器配置。
type BreakerConfig struct {
	// MaxFailures 连续失败多少次后打开。
	MaxFailures int
	// OpenTimeout 打开状态持续多久后进入半开。
	OpenTimeout time.Duration
	// HalfOpenMaxCalls 半开状态允许的探测调用数。
	HalfOpenMaxCalls int
}

// DefaultBreakerConfig 返回默认熔断器配置。
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxFailures:      5,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// State 熔断器状态。
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Stats 熔断器快照。
type Stats struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	Failures        int       `json:"failures"`
	LastFailureTime time.Time `json:"last_failure_time,omitempty"`
}

// Breaker 熔断器。
type Breaker struct {
	name   string
	config *BreakerConfig
	now    func() time.Time

	mu                sync.Mutex
	state             State
	failures          int
	lastFailure       time.Time
	halfOpenCalls     int
	halfOpenSuccesses int
}

// NewBreaker 创建熔断器，name 仅用于日志与统计。
func NewBreaker(name string, config *BreakerConfig) *Breaker {
	if config == nil {
		config = DefaultBreakerConfig()
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}
	return &Breaker{name: name, config: config, now: time.Now}
}

// Execute 通过熔断器执行 fn。
func (b *Breaker) Execute(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.config.OpenTimeout {
			return ErrCircuitOpen
		}
		logger.Infow("circuit breaker half-open", "breaker", b.name)
		b.state = StateHalfOpen
		b.halfOpenCalls = 1
		b.halfOpenSuccesses = 0
		return nil
	case StateHalfOpen:
		if b.halfOpenCalls >= b.config.HalfOpenMaxCalls {
			return ErrCircuitOpen
		}
		b.halfOpenCalls++
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if isContextError(err) {
		// 半开探测被取消，释放名额。
		if b.state == StateHalfOpen && b.halfOpenCalls > 0 {
			b.halfOpenCalls--
		}
		return
	}

	if err == nil {
		switch b.state {
		case StateClosed:
			b.failures = 0
		case StateHalfOpen:
			b.halfOpenSuccesses++
			if b.halfOpenSuccesses >= b.halfOpenCalls {
				logger.Infow("circuit breaker closed", "breaker", b.name)
				b.state = StateClosed
				b.failures = 0
			}
		}
		return
	}

	b.failures++
	b.lastFailure = b.now()
	switch b.state {
	case StateClosed:
		if b.failures >= b.config.MaxFailures {
			logger.Warnw("circuit breaker opened",
				"breaker", b.name,
				"failures", b.failures,
				"error", err.Error(),
			)
			b.state = StateOpen
		}
	case StateHalfOpen:
		logger.Warnw("circuit breaker re-opened", "breaker", b.name, "error", err.Error())
		b.state = StateOpen
	}
}

// State 返回当前状态。
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats 返回统计快照。
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:            b.name,
		State:           b.state.String(),
		Failures:        b.failures,
		LastFailureTime: b.lastFailure,
	}
}

// Reset 重置为关闭状态。
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.halfOpenCalls = 0
	b.halfOpenSuccesses = 0
}

// Retry 按指数退避重试 fn，ctx 取消时立即返回 ctx.Err()。
func Retry(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	retryable := config.Retryable
	if retryable == nil {
		retryable = IsRetryableError
	}
	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := config.InitialDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !retryable(err) {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("max retry attempts (%d) reached: %w", attempts, err)
		}

		logger.Debugw("retrying llm call", "attempt", attempt, "delay", delay, "error", err.Error())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * config.Multiplier)
		if config.MaxDelay > 0 && delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}
}

// Do 每次尝试都经过熔断器的重试。
func Do(ctx context.Context, config *RetryConfig, b *Breaker, fn func() error) error {
	return Retry(ctx, config, func() error {
		return b.Execute(fn)
	})
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
