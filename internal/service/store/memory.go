package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	updatedAt time.Time
}

// MemorySessionStore 内存会话存储
type MemorySessionStore struct {
	sessions map[string]map[string]memoryEntry
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMemorySessionStore 创建内存会话存储
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]map[string]memoryEntry),
		now:      time.Now,
	}
}

// Get 读取会话键值
func (s *MemorySessionStore) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID][key]
	return e.value, ok, nil
}

// Set 写入会话键值
func (s *MemorySessionStore) Set(_ context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.sessions[sessionID]
	if !ok {
		values = make(map[string]memoryEntry)
		s.sessions[sessionID] = values
	}
	values[key] = memoryEntry{value: value, updatedAt: s.now()}
	return nil
}

// Delete 删除会话键值
func (s *MemorySessionStore) Delete(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if values, ok := s.sessions[sessionID]; ok {
		delete(values, key)
		if len(values) == 0 {
			delete(s.sessions, sessionID)
		}
	}
	return nil
}

// Count 会话数量
func (s *MemorySessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// PurgeSessions drops values not updated within ttl and returns how many were removed.
func (s *MemorySessionStore) PurgeSessions(_ context.Context, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	var removed int64
	for id, values := range s.sessions {
		for k, e := range values {
			if e.updatedAt.Before(cutoff) {
				delete(values, k)
				removed++
			}
		}
		if len(values) == 0 {
			delete(s.sessions, id)
		}
	}
	return removed, nil
}

// Close 无操作
func (s *MemorySessionStore) Close() error {
	return nil
}
