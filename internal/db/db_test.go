package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestEnsureDSNParams(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{
			name: "bare path",
			dsn:  "data/app.db",
			want: "data/app.db?_fk=1&_txlock=immediate&_busy_timeout=5000",
		},
		{
			name: "existing query",
			dsn:  "file:app.db?cache=shared",
			want: "file:app.db?cache=shared&_fk=1&_txlock=immediate&_busy_timeout=5000",
		},
		{
			name: "caller overrides kept",
			dsn:  "app.db?_txlock=deferred&_fk=0",
			want: "app.db?_txlock=deferred&_fk=0&_busy_timeout=5000",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ensureDSNParams(tc.dsn); got != tc.want {
				t.Fatalf("ensureDSNParams(%q) = %q, want %q", tc.dsn, got, tc.want)
			}
		})
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "tx.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	sentinel := errors.New("boom")
	err = database.RunInTx(ctx, func(txdb *DB) error {
		if _, err := txdb.Queries.GetEstablishment(ctx, 1); err == nil {
			t.Fatalf("expected empty establishments table")
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("RunInTx error = %v, want %v", err, sentinel)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "unique.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	insert := `INSERT INTO establishments (id, name, timezone) VALUES (1, 'Club', 'UTC')`
	if _, err := database.ExecContext(ctx, insert); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err = database.ExecContext(ctx, insert)
	if !IsUniqueViolation(err) {
		t.Fatalf("IsUniqueViolation(%v) = false, want true", err)
	}
	if IsUniqueViolation(errors.New("other")) {
		t.Fatalf("plain error reported as unique violation")
	}
}
