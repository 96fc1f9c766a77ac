package db_test

import (
	"path/filepath"
	"testing"

	"marketlabels/pkg/db"
)

func TestDB(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if d == nil {
		t.Fatal("Init() returned nil DB")
	}
	defer d.Close()

	for _, table := range []string{"persistent_state", "blobs"} {
		var n int
		if err := d.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n); err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := d.Exec("INSERT INTO blobs (key, value) VALUES ('k', 'v')"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	d.Close()

	d2, err := db.Init(path)
	if err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
	defer d2.Close()
	var v string
	if err := d2.QueryRow("SELECT value FROM blobs WHERE key='k'").Scan(&v); err != nil || v != "v" {
		t.Errorf("expected persisted value v, got %q (err=%v)", v, err)
	}
}
