package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

var (
	_ model.SessionBackend = (*Store)(nil)
	_ model.SessionBackend = (*RedisSessionStore)(nil)
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "vendorlens.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteSessionValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	if _, ok, err := s.Get(ctx, "a", "k"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "a", "k", `["x"]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "a", "k", `["y"]`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, "a", "k")
	if err != nil || !ok || v != `["y"]` {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}
	if _, ok, _ := s.Get(ctx, "b", "k"); ok {
		t.Fatalf("session b sees session a")
	}

	keys, err := s.SessionKeys(ctx, "a")
	if err != nil || len(keys) != 1 {
		t.Fatalf("keys = %q %v", keys, err)
	}
	if err := s.Delete(ctx, "a", "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "a", "k"); ok {
		t.Fatalf("value survived Delete")
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vendorlens.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Set(ctx, "a", "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if v, ok, _ := s.Get(ctx, "a", "k"); !ok || v != "v" {
		t.Fatalf("value lost across restart: %q %v", v, ok)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file: %v", err)
	}
}

func TestMigrationsApplied(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	var version int
	var dirty bool
	if err := s.DB().QueryRow("SELECT version, dirty FROM schema_migrations").Scan(&version, &dirty); err != nil {
		t.Fatalf("read schema_migrations: %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("version=%d dirty=%v", version, dirty)
	}
}

func TestPurgeSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)
	if err := s.Set(ctx, "a", "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.DB().Exec("UPDATE session_values SET updated_at = '2000-01-01 00:00:00'"); err != nil {
		t.Fatalf("age rows: %v", err)
	}
	_ = s.Set(ctx, "b", "k", "v")

	n, err := s.PurgeSessions(ctx, time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("purged %d, %v", n, err)
	}
}

func TestImportLogLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	id, err := s.CreateImportLog(ctx, "sess", "eval.xlsx", 2048, "abc")
	if err != nil {
		t.Fatalf("CreateImportLog: %v", err)
	}
	meta := SheetMeta{ImportLogID: id, Role: "companies", SheetName: "Entreprise", TotalRows: 2, TotalColumns: 3, Columns: []string{"Entreprises", "URL", "Score Global"}}
	if err := s.InsertSheetMeta(ctx, meta); err != nil {
		t.Fatalf("InsertSheetMeta: %v", err)
	}
	if err := s.UpdateImportLog(ctx, id, ImportResult{WorkbookID: "wb-1", Companies: 2, Status: "success"}); err != nil {
		t.Fatalf("UpdateImportLog: %v", err)
	}

	logs, err := s.ListImportLogs(ctx, "sess", 10)
	if err != nil {
		t.Fatalf("ListImportLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != "success" || logs[0].Companies != 2 || logs[0].CompletedAt == nil {
		t.Fatalf("logs = %+v", logs)
	}

	metas, err := s.ListSheetMeta(ctx, id)
	if err != nil || len(metas) != 1 || metas[0].Columns[2] != "Score Global" {
		t.Fatalf("metas = %+v, %v", metas, err)
	}
}

func TestRedisSessionStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	ctx := context.Background()
	s, err := NewRedisSessionStore(ctx, mr.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("NewRedisSessionStore: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get(ctx, "a", "k"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "a", "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := mr.Get("session:a:k"); got != "v" {
		t.Fatalf("raw key = %q", got)
	}
	if ttl := mr.TTL("session:a:k"); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}
	if err := s.Delete(ctx, "a", "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists("session:a:k") {
		t.Fatalf("key survived Delete")
	}
}

func TestRedisLock(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	ctx := context.Background()
	s, err := NewRedisSessionStore(ctx, mr.Addr(), 0)
	if err != nil {
		t.Fatalf("NewRedisSessionStore: %v", err)
	}
	defer s.Close()

	unlock, err := s.Lock(ctx, "images:Flow")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !mr.Exists("session:lock:images:Flow") {
		t.Fatalf("lock key missing")
	}
	unlock()
	if mr.Exists("session:lock:images:Flow") {
		t.Fatalf("lock not released")
	}
}

func TestRedisUnreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := NewRedisSessionStore(ctx, "127.0.0.1:1", 0); err == nil {
		t.Fatalf("expected connection error")
	}
}
