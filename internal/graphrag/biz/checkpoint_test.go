package biz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/graphrag/pkg/llm"
)

func sampleState() *ConversationState {
	return &ConversationState{
		Query:            "q",
		Messages:         []llm.Message{{Role: llm.RoleUser, Content: "q"}, {Role: llm.RoleAssistant, Content: "a"}},
		Entities:         []string{"A"},
		GraphContext:     "A -[R]-> B",
		RagContext:       "涉及实体：A",
		Answer:           "a",
		ValidationStatus: StatusPass,
		RetryCount:       1,
		UpdatedAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMemoryCheckpointStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCheckpointStore()

	got, err := s.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	st := sampleState()
	require.NoError(t, s.Save(ctx, "t", st))
	st.Messages = append(st.Messages, llm.Message{Role: llm.RoleUser, Content: "later"})

	got, err = s.Load(ctx, "t")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, "A -[R]-> B", got.GraphContext)
}

func TestRedisCheckpointStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisCheckpointStore(rdb, time.Hour)
	got, err := s.Load(ctx, "t")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Save(ctx, "t", sampleState()))
	assert.True(t, mr.Exists("graphrag:thread:t"))
	assert.Equal(t, time.Hour, mr.TTL("graphrag:thread:t"))

	got, err = s.Load(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)

	mr.FastForward(2 * time.Hour)
	got, err = s.Load(ctx, "t")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCheckpointStoreErrors(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewRedisCheckpointStore(rdb, 0)

	require.NoError(t, mr.Set("graphrag:thread:bad", "{not json"))
	_, err := s.Load(ctx, "bad")
	assert.Error(t, err)

	mr.Close()
	assert.Error(t, s.Save(ctx, "t", sampleState()))
}
