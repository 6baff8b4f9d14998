package storage_test

import (
	"path/filepath"
	"testing"

	"renovo/internal/storage"
	"renovo/internal/storage/storagetest"
)

func TestSQLiteRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "renovo.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { repo.Close() })
		return repo
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renovo.db")
	dsn := storage.SQLiteDSN(path)
	for i := 0; i < 2; i++ {
		if err := storage.RunMigrations(storage.SQLite, dsn); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}
	version, dirty, err := storage.MigrationVersion(storage.SQLite, dsn)
	if err != nil || dirty || version != 2 {
		t.Fatalf("version=%d dirty=%v err=%v", version, dirty, err)
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM expenses WHERE project_id = ? AND title LIKE ?"
	if got := storage.SQLite.Rebind(q); got != q {
		t.Fatalf("sqlite query changed: %s", got)
	}
	want := "SELECT * FROM expenses WHERE project_id = $1 AND title LIKE $2"
	if got := storage.Postgres.Rebind(q); got != want {
		t.Fatalf("got %s", got)
	}
}
