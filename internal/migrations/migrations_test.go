package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	names, err := fs.Glob(files, dir+"/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) < 4 {
		t.Fatalf("expected at least 4 migrations, got %d", len(names))
	}
	for _, name := range names {
		body, err := fs.ReadFile(files, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		text := string(body)
		if !strings.Contains(text, "-- +goose Up") || !strings.Contains(text, "-- +goose Down") {
			t.Fatalf("%s is missing goose annotations", name)
		}
	}
}
