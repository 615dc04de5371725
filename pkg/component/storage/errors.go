package storage

import "errors"

var (
	// ErrClientNotFound 客户端未注册
	ErrClientNotFound = errors.New("storage client not found")
	// ErrClientAlreadyExists 同名客户端已注册
	ErrClientAlreadyExists = errors.New("storage client already registered")
	// ErrInvalidClient 名称为空或客户端为 nil
	ErrInvalidClient = errors.New("invalid storage client")
)
