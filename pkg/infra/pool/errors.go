package pool

import "errors"

var (
	// ErrPoolClosed is returned by Submit after Release.
	ErrPoolClosed = errors.New("pool: closed")

	// ErrPoolOverload 非阻塞池已满。
	ErrPoolOverload = errors.New("pool: overloaded")

	// ErrInvalidPoolConfig 容量不合法。
	ErrInvalidPoolConfig = errors.New("pool: invalid config")

	ErrPoolNotFound      = errors.New("pool: not found")
	ErrPoolAlreadyExists = errors.New("pool: already registered")
)
