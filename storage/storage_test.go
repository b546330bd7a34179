package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"prev", "state-prev.json"},
		{"prev_us-2", "state-prev_us-2.json"},
		{"", ""},
		{"../etc/passwd", ""},
		{"a/b", ""},
		{"with space", ""},
	}
	for _, tt := range tests {
		if got := Key(tt.key); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "prev"); !IsNotFound(err) {
		t.Fatalf("Get() on empty store error = %v, want not found", err)
	}

	if err := s.Put(ctx, "prev", []byte(`["a.b"]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "prev", []byte(`["c.d"]`)); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}

	got, err := s.Get(ctx, "prev")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `["c.d"]` {
		t.Errorf("Get() = %s, want overwritten value", got)
	}
}

func TestMemory(t *testing.T) {
	testStore(t, NewMemory())
}

func TestMemoryReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	value := []byte("abc")
	if err := m.Put(ctx, "k", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'x'

	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	got[1] = 'y'

	again, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value was mutated: %q", again)
	}
}

func TestLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	l, err := NewLocal(dir, discardLogger())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	testStore(t, l)

	if _, err := os.Stat(filepath.Join(dir, "state-prev.json")); err != nil {
		t.Errorf("expected state file on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "state-prev.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestLocalRejectsUnsafeKey(t *testing.T) {
	l, err := NewLocal(t.TempDir(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := l.Put(ctx, "../escape", []byte("x")); err == nil {
		t.Error("Put() with unsafe key should fail")
	}
	if _, err := l.Get(ctx, "../escape"); err == nil || IsNotFound(err) {
		t.Errorf("Get() with unsafe key error = %v, want format error", err)
	}
}
