package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

var _ model.SessionBackend = (*MemorySessionStore)(nil)

// TestNewMemorySessionStore 测试创建存储
func TestNewMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	if store == nil {
		t.Fatal("NewMemorySessionStore() returned nil")
	}
	if store.Count() != 0 {
		t.Errorf("New store should be empty, got %d sessions", store.Count())
	}
}

// TestSessionIsolation 测试会话隔离
func TestSessionIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	if err := store.Set(ctx, "a", "k", "1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "b", "k"); ok {
		t.Error("session b should not see session a's value")
	}
	v, ok, err := store.Get(ctx, "a", "k")
	if err != nil || !ok || v != "1" {
		t.Errorf("Get = %q, %v, %v", v, ok, err)
	}
}

// TestDelete 测试删除
func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	_ = store.Set(ctx, "a", "k", "1")
	if err := store.Delete(ctx, "a", "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "a", "k"); ok {
		t.Error("value should be gone after Delete")
	}
	if store.Count() != 0 {
		t.Errorf("empty session should be dropped, got %d", store.Count())
	}
	if err := store.Delete(ctx, "missing", "k"); err != nil {
		t.Errorf("Delete on missing session should be a no-op, got %v", err)
	}
}

// TestScopedSession 测试绑定会话 ID 的视图
func TestScopedSession(t *testing.T) {
	ctx := context.Background()
	backend := NewMemorySessionStore()
	scoped := model.ScopedSession{Backend: backend, ID: "s1"}

	if err := scoped.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, ok, _ := backend.Get(ctx, "s1", "k"); !ok || v != "v" {
		t.Errorf("backend value = %q, %v", v, ok)
	}
}

// TestPurgeSessions 测试过期清理
func TestPurgeSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	_ = store.Set(ctx, "old", "k", "1")
	now = now.Add(2 * time.Hour)
	_ = store.Set(ctx, "new", "k", "1")

	removed, err := store.PurgeSessions(ctx, time.Hour)
	if err != nil {
		t.Fatalf("PurgeSessions failed: %v", err)
	}
	if removed != 1 || store.Count() != 1 {
		t.Errorf("removed = %d, sessions = %d", removed, store.Count())
	}
}

// TestConcurrentAccess 测试并发访问
func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i%5)
			_ = store.Set(ctx, id, fmt.Sprintf("k%d", i), "v")
			_, _, _ = store.Get(ctx, id, "k0")
		}(i)
	}
	wg.Wait()

	if store.Count() != 5 {
		t.Errorf("Count = %d, want 5", store.Count())
	}
}
