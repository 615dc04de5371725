package biz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/graphrag/pkg/utils/json"
)

// CheckpointStore 按线程持久化会话状态。Load 在不存在时返回 (nil, nil)。
type CheckpointStore interface {
	Load(ctx context.Context, threadID string) (*ConversationState, error)
	Save(ctx context.Context, threadID string, state *ConversationState) error
}

// MemoryCheckpointStore 进程内检查点，重启后丢失。
type MemoryCheckpointStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

var _ CheckpointStore = (*MemoryCheckpointStore)(nil)

// NewMemoryCheckpointStore 创建内存检查点存储。
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{states: make(map[string][]byte)}
}

// Load 返回状态副本。
func (s *MemoryCheckpointStore) Load(_ context.Context, threadID string) (*ConversationState, error) {
	s.mu.RLock()
	data, ok := s.states[threadID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeState(data)
}

// Save 以序列化形式保存，调用方后续修改不影响已保存状态。
func (s *MemoryCheckpointStore) Save(_ context.Context, threadID string, state *ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	s.mu.Lock()
	s.states[threadID] = data
	s.mu.Unlock()
	return nil
}

// RedisCheckpointStore 基于 Redis 的检查点存储。
type RedisCheckpointStore struct {
	rdb       goredis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

var _ CheckpointStore = (*RedisCheckpointStore)(nil)

// NewRedisCheckpointStore 创建 Redis 检查点存储，ttl 为 0 表示不过期。
func NewRedisCheckpointStore(rdb goredis.Cmdable, ttl time.Duration) *RedisCheckpointStore {
	return &RedisCheckpointStore{rdb: rdb, keyPrefix: "graphrag:thread:", ttl: ttl}
}

func (s *RedisCheckpointStore) key(threadID string) string {
	return s.keyPrefix + threadID
}

// Load 读取线程状态。
func (s *RedisCheckpointStore) Load(ctx context.Context, threadID string) (*ConversationState, error) {
	data, err := s.rdb.Get(ctx, s.key(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return decodeState(data)
}

// Save 写入线程状态并刷新过期时间。
func (s *RedisCheckpointStore) Save(ctx context.Context, threadID string, state *ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(threadID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func decodeState(data []byte) (*ConversationState, error) {
	var st ConversationState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &st, nil
}
