package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("HEALTHOPS_TEST_TOKEN", "tok")
	p := NewEnvProvider()

	got, err := p.Resolve(context.Background(), "HEALTHOPS_TEST_TOKEN")
	if err != nil || got != "tok" {
		t.Errorf("Resolve = %q, %v", got, err)
	}
	if _, err := p.Resolve(context.Background(), "HEALTHOPS_TEST_UNSET"); !errors.Is(err, ErrMissingEnv) {
		t.Errorf("err = %v, want ErrMissingEnv", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Resolve(ctx, "HEALTHOPS_TEST_TOKEN"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pg_dsn"), []byte("postgres://u:p@db/app\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	p := NewFileProvider(dir)
	got, err := p.Resolve(context.Background(), "pg_dsn")
	if err != nil || got != "postgres://u:p@db/app" {
		t.Errorf("relative Resolve = %q, %v", got, err)
	}

	abs := NewFileProvider("")
	got, err = abs.Resolve(context.Background(), filepath.Join(dir, "pg_dsn"))
	if err != nil || got != "postgres://u:p@db/app" {
		t.Errorf("absolute Resolve = %q, %v", got, err)
	}

	if _, err := p.Resolve(context.Background(), "missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}
