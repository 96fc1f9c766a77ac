package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"marketlabels/pkg/db"
)

// setupTestStore creates a test database and store for each test.
func setupTestStore(t *testing.T) (*SQLiteStore, func()) {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}

	store := NewSQLiteStore(d)
	cleanup := func() { d.Close() }
	return store, cleanup
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("State", func(t *testing.T) {
		if _, ok := s.GetState(ctx, "missing"); ok {
			t.Error("expected missing state key")
		}
		if err := s.SetState(ctx, "k", "v1"); err != nil {
			t.Fatalf("SetState failed: %v", err)
		}
		if err := s.SetState(ctx, "k", "v2"); err != nil {
			t.Fatalf("SetState overwrite failed: %v", err)
		}
		if val, ok := s.GetState(ctx, "k"); !ok || val != "v2" {
			t.Errorf("GetState = %q, %v; want v2, true", val, ok)
		}
		if err := s.DeleteState(ctx, "k"); err != nil {
			t.Fatalf("DeleteState failed: %v", err)
		}
		if _, ok := s.GetState(ctx, "k"); ok {
			t.Error("expected key to be deleted")
		}
	})

	t.Run("Blob", func(t *testing.T) {
		val, ok, err := s.GetBlob(ctx, "label_overrides")
		if err != nil || ok || val != "" {
			t.Errorf("GetBlob on missing key = %q, %v, %v", val, ok, err)
		}
		payload := `{"version":1,"overrides":{}}`
		if err := s.SetBlob(ctx, "label_overrides", payload); err != nil {
			t.Fatalf("SetBlob failed: %v", err)
		}
		val, ok, err = s.GetBlob(ctx, "label_overrides")
		if err != nil || !ok || val != payload {
			t.Errorf("GetBlob = %q, %v, %v; want payload", val, ok, err)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	exerciseStore(t, s)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_InjectedErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	boom := errors.New("disk full")

	m.WriteErr = boom
	if err := m.SetBlob(ctx, "k", "v"); !errors.Is(err, boom) {
		t.Errorf("SetBlob error = %v, want %v", err, boom)
	}

	m.WriteErr = nil
	m.ReadErr = boom
	if _, _, err := m.GetBlob(ctx, "k"); !errors.Is(err, boom) {
		t.Errorf("GetBlob error = %v, want %v", err, boom)
	}
}

func TestRedisStore_Keys(t *testing.T) {
	s := OpenRedis("127.0.0.1:0", "", 0, "ml:")
	defer s.Close()
	if got := s.blobKey("label_overrides"); got != "ml:blob:label_overrides" {
		t.Errorf("blobKey = %q", got)
	}
	if got := s.stateKey("labels_strategy"); got != "ml:state:labels_strategy" {
		t.Errorf("stateKey = %q", got)
	}
}
