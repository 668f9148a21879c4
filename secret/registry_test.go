package secret

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func stubFactory(name string) ProviderFactory {
	return func(map[string]any) (Provider, error) { return &stubProvider{name: name}, nil }
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(" stub ", stubFactory("stub")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	p, err := reg.Create("stub", nil)
	if err != nil || p.Name() != "stub" {
		t.Fatalf("Create = %v, %v", p, err)
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register("stub", stubFactory("stub"))

	if err := reg.Register("stub", stubFactory("stub")); !errors.Is(err, ErrDuplicateProvider) {
		t.Errorf("duplicate: err = %v", err)
	}
	if err := reg.Register("", stubFactory("x")); !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("empty name: err = %v", err)
	}
	if err := reg.Register("nil", nil); !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("nil factory: err = %v", err)
	}
	if _, err := reg.Create("missing", nil); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("unknown: err = %v", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	if got := DefaultRegistry.List(); !slices.Equal(got, []string{"env", "file"}) {
		t.Errorf("List() = %v, want [env file]", got)
	}
}

func TestRegistry_NewResolver(t *testing.T) {
	t.Setenv("HEALTHOPS_TEST_KEY", "k")

	r, err := DefaultRegistry.NewResolver(true, map[string]map[string]any{"file": {"dir": t.TempDir()}})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	defer r.Close()

	if !slices.Equal(r.Providers(), []string{"env", "file"}) {
		t.Errorf("Providers() = %v", r.Providers())
	}
	got, err := r.ResolveValue(context.Background(), "key=secretref:env:HEALTHOPS_TEST_KEY")
	if err != nil || got != "key=k" {
		t.Errorf("ResolveValue = %q, %v", got, err)
	}
}

func TestRegistry_NewResolverFactoryError(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register("a", stubFactory("a"))
	_ = reg.Register("b", func(map[string]any) (Provider, error) { return nil, errors.New("no creds") })

	if _, err := reg.NewResolver(false, nil); err == nil {
		t.Error("expected factory error")
	}
}
