// Package id provides identifier generation for the service.
//
//	id.NewULID()            // "01ARZ3NDEKTSV4RRFFQ69G5FAV", thread and request ids
//	id.NewUUID()            // random UUID v4
//	id.NameUUID("刘备")      // deterministic UUID v5, vector point ids
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// namespace 实体点 ID 的 UUIDv5 命名空间。
var namespace = uuid.MustParse("6f1c6c2e-5d0a-4a8e-9a55-7b0c1e7f3a21")

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID generates a new lexicographically sortable ULID string.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// IsULID reports whether s parses as a ULID.
func IsULID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// NewUUID generates a new UUID v4 string.
func NewUUID() string {
	return uuid.NewString()
}

// NameUUID returns the UUID v5 of name, stable across runs.
func NameUUID(name string) string {
	return uuid.NewSHA1(namespace, []byte(name)).String()
}
