package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/graphrag/pkg/llm"
)

var errBoom = errors.New("status code 502: bad gateway")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	b := NewBreaker("test", &BreakerConfig{
		MaxFailures:      maxFailures,
		OpenTimeout:      time.Second,
		HalfOpenMaxCalls: 1,
	})
	b.now = clock.now
	return b, clock
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b, _ := newTestBreaker(3)
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(func() error { return errBoom }), errBoom)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpen(t *testing.T) {
	b, clock := newTestBreaker(2)
	_ = b.Execute(func() error { return errBoom })
	_ = b.Execute(func() error { return errBoom })
	require.Equal(t, StateOpen, b.State())

	clock.advance(2 * time.Second)
	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())

	_ = b.Execute(func() error { return errBoom })
	_ = b.Execute(func() error { return errBoom })
	clock.advance(2 * time.Second)
	assert.Error(t, b.Execute(func() error { return errBoom }))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerIgnoresContextErrors(t *testing.T) {
	b, _ := newTestBreaker(1)
	err := b.Execute(func() error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Stats().Failures)
}

func TestBreakerStatsAndReset(t *testing.T) {
	b, _ := newTestBreaker(1)
	_ = b.Execute(func() error { return errBoom })

	s := b.Stats()
	assert.Equal(t, "test", s.Name)
	assert.Equal(t, "open", s.State)
	assert.Equal(t, 1, s.Failures)

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}, func() error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), &RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		calls++
		return errors.New("status code 400: bad request")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), &RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		calls++
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, calls)
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, &RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}, func() error {
		calls++
		cancel()
		return errBoom
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrCircuitOpen, false},
		{context.DeadlineExceeded, false},
		{fmt.Errorf("wrap: %w", context.Canceled), false},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{errors.New("request failed with status code 503: x"), true},
		{errors.New("request failed with status code 429: slow down"), true},
		{errors.New("request failed with status code 401: no"), false},
		{errors.New("unexpected EOF"), true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsRetryableError(c.err), "%v", c.err)
	}
}

type flakyChat struct {
	fails int
	calls int
	pings int
}

func (f *flakyChat) Chat(context.Context, []llm.Message) (string, error) {
	f.calls++
	if f.calls <= f.fails {
		return "", errBoom
	}
	return "ok", nil
}

func (f *flakyChat) Generate(ctx context.Context, _ string, _ string) (string, error) {
	return f.Chat(ctx, nil)
}

func (f *flakyChat) Name() string { return "flaky" }

func (f *flakyChat) Ping(context.Context) error {
	f.pings++
	return nil
}

func TestWrapChatRetriesAndForwardsPing(t *testing.T) {
	inner := &flakyChat{fails: 1}
	p := WrapChat(inner, "smart", &RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, nil)

	out, err := p.Generate(context.Background(), "q", "s")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "flaky-resilient", p.Name())
	assert.Equal(t, "flaky/smart", p.Breaker().Stats().Name)

	require.NoError(t, p.Ping(context.Background()))
	assert.Equal(t, 1, inner.pings)
}

func TestWrapChatOpenBreakerFailsFast(t *testing.T) {
	inner := &flakyChat{fails: 100}
	p := WrapChat(inner, "fast",
		&RetryConfig{MaxAttempts: 1},
		&BreakerConfig{MaxFailures: 1, OpenTimeout: time.Hour})

	_, err := p.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, errBoom)
	_, err = p.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 1, inner.calls)
}

type stubEmbedder struct{ calls int }

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (s *stubEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	return []float32{1}, nil
}

func (s *stubEmbedder) Name() string { return "stub" }

func TestWrapEmbedding(t *testing.T) {
	inner := &stubEmbedder{}
	p := WrapEmbedding(inner, nil, nil)

	vecs, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	v, err := p.EmbedSingle(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
	assert.Equal(t, 2, inner.calls)
	assert.NoError(t, p.Ping(context.Background()), "non-pinger is treated as healthy")
	assert.Equal(t, "stub/embedding", p.Breaker().Stats().Name)
}
