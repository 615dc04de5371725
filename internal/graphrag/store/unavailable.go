package store

import (
	"context"
	"fmt"
)

// Unavailable 是连接失败时的占位存储，同时满足 VectorStore 与 GraphStore。
type Unavailable struct {
	name  string
	cause error
}

var (
	_ VectorStore = (*Unavailable)(nil)
	_ GraphStore  = (*Unavailable)(nil)
)

// NewUnavailable 创建占位存储，cause 为连接失败原因。
func NewUnavailable(name string, cause error) *Unavailable {
	return &Unavailable{name: name, cause: cause}
}

func (u *Unavailable) err() error {
	if u == nil || u.cause == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, u.cause)
}

// Name returns the backend name.
func (u *Unavailable) Name() string {
	if u == nil {
		return "unavailable"
	}
	return u.name
}

func (u *Unavailable) Ping(context.Context) error                 { return u.err() }
func (u *Unavailable) EnsureCollection(context.Context, int) error { return u.err() }
func (u *Unavailable) Recreate(context.Context, int) error        { return u.err() }
func (u *Unavailable) Count(context.Context) (int64, error)       { return 0, u.err() }
func (u *Unavailable) Exists(context.Context) (bool, error)       { return false, u.err() }

func (u *Unavailable) Upsert(context.Context, []EntityDocument, [][]float32) error {
	return u.err()
}

func (u *Unavailable) Search(context.Context, []float32, int) ([]ScoredEntity, error) {
	return nil, u.err()
}

func (u *Unavailable) Relations(context.Context, []string, int) ([]Relation, error) {
	return nil, u.err()
}

func (u *Unavailable) Entities(context.Context) ([]EntityRecord, error) {
	return nil, u.err()
}
