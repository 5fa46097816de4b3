package db

import (
	"path/filepath"
	"testing"
)

func TestNewSQLiteConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	conn, err := NewSQLiteConnection(DefaultConnectionConfig(path))
	if err != nil {
		t.Fatalf("NewSQLiteConnection() error = %v", err)
	}
	defer conn.Close()

	var mode string
	if err := conn.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := conn.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatal(err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}

	if got := conn.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
}

func TestNewSQLiteConnection_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteConnection(ConnectionConfig{}); err == nil {
		t.Error("expected error for empty path")
	}
}
