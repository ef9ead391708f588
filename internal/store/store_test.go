package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// storeUnderTest runs the contract suite against an implementation.
func storeUnderTest(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("put then get", func(t *testing.T) {
		id, err := s.Put(ctx, "node-1", []byte("blob-a"))
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if id == "" {
			t.Fatal("Put returned empty id")
		}
		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got, []byte("blob-a")) {
			t.Errorf("Get = %q", got)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		id, _ := s.Put(ctx, "node-1", []byte("blob-b"))
		if err := s.Delete(ctx, id); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := s.Delete(ctx, id); err != nil {
			t.Errorf("second Delete: %v", err)
		}
		if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get after delete = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete owned sweeps only that node", func(t *testing.T) {
		a, _ := s.Put(ctx, "node-a", []byte("1"))
		b, _ := s.Put(ctx, "node-a", []byte("2"))
		c, _ := s.Put(ctx, "node-b", []byte("3"))

		if err := s.DeleteOwned(ctx, "node-a"); err != nil {
			t.Fatalf("DeleteOwned: %v", err)
		}
		for _, id := range []string{a, b} {
			if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("asset %s of node-a survived sweep", id)
			}
		}
		if _, err := s.Get(ctx, c); err != nil {
			t.Errorf("asset of node-b was swept: %v", err)
		}
	})

	t.Run("display url", func(t *testing.T) {
		id, _ := s.Put(ctx, "node-1", []byte("blob-c"))
		u := s.ResolveDisplayURL(id)
		if !strings.HasPrefix(u, "ephemeral://") || !strings.Contains(u, id) {
			t.Errorf("ResolveDisplayURL = %q", u)
		}
		if got := s.ResolveDisplayURL("no-such-id"); got != "" {
			t.Errorf("unknown id resolved to %q, want empty", got)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	storeUnderTest(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "assets.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()
	storeUnderTest(t, s)
}

func TestSQLitePragmas(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "assets.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.db.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := s.db.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}
