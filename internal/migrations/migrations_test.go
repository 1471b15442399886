package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsAreOrderedAndAnnotated(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		t.Fatalf("read embedded dir: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(entries))
	}

	for _, e := range entries {
		data, err := fs.ReadFile(FS, e.Name())
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		body := string(data)
		if !strings.Contains(body, "-- +goose Up") || !strings.Contains(body, "-- +goose Down") {
			t.Fatalf("%s: missing goose annotations", e.Name())
		}
	}

	if !strings.HasPrefix(entries[0].Name(), "00001_") {
		t.Fatalf("first migration = %s", entries[0].Name())
	}
}

func TestUsersEmailLookupIsIndexedCaseInsensitively(t *testing.T) {
	var found bool
	err := fs.WalkDir(FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(FS, path)
		if err != nil {
			return err
		}
		up, _, _ := strings.Cut(string(data), "-- +goose Down")
		if strings.Contains(up, "CREATE UNIQUE INDEX") && strings.Contains(up, "ON users (lower(email))") {
			found = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk migrations: %v", err)
	}
	if !found {
		t.Fatal("no migration creates a unique index on lower(email)")
	}
}
