package model

import "context"

// SessionBackend 按客户端会话隔离的键值存储
type SessionBackend interface {
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID, key string) error
	Close() error
}

// ScopedSession binds a backend to one session id.
type ScopedSession struct {
	Backend SessionBackend
	ID      string
}

func (s ScopedSession) Get(ctx context.Context, key string) (string, bool, error) {
	return s.Backend.Get(ctx, s.ID, key)
}

func (s ScopedSession) Set(ctx context.Context, key, value string) error {
	return s.Backend.Set(ctx, s.ID, key, value)
}

func (s ScopedSession) Delete(ctx context.Context, key string) error {
	return s.Backend.Delete(ctx, s.ID, key)
}
