package secret

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stubProvider struct {
	name     string
	values   map[string]string
	resolve  func(ref string) (string, error)
	closeErr error
	closed   bool
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.resolve != nil {
		return s.resolve(ref)
	}
	return s.values[ref], nil
}

func (s *stubProvider) Close() error {
	s.closed = true
	return s.closeErr
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:file:/run/secrets/dsn", "file", "/run/secrets/dsn", true},
		{"secretref:vault:kv/data:key", "vault", "kv/data:key", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"postgres://localhost", "", "", false},
	}
	for _, tt := range tests {
		provider, ref, ok := ParseSecretRef(tt.in)
		if ok != tt.ok || provider != tt.provider || ref != tt.ref {
			t.Errorf("ParseSecretRef(%q) = %q, %q, %v", tt.in, provider, ref, ok)
		}
	}
}

func TestResolver_ResolveValue(t *testing.T) {
	t.Setenv("UPSTREAM", "api.internal")
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"token": "t0k", "empty": ""}})

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain", "https://${UPSTREAM}/healthz", "https://api.internal/healthz", nil},
		{"full ref", "secretref:stub:token", "t0k", nil},
		{"inline ref", "Bearer secretref:stub:token", "Bearer t0k", nil},
		{"two inline refs", "user=secretref:stub:token pass=secretref:stub:token", "user=t0k pass=t0k", nil},
		{"unknown provider", "secretref:vault:x", "", ErrProviderNotRegistered},
		{"strict empty", "secretref:stub:empty", "", ErrEmptySecret},
		{"missing env", "${HEALTHOPS_NOPE}", "", ErrMissingEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveValue(context.Background(), tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ResolveValue(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestResolver_NilOnlyExpandsEnv(t *testing.T) {
	t.Setenv("X", "y")
	var r *Resolver
	got, err := r.ResolveValue(context.Background(), "${X} secretref:stub:a")
	if err != nil || got != "y secretref:stub:a" {
		t.Errorf("ResolveValue = %q, %v", got, err)
	}
}

func TestResolver_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("explode")
	r := NewResolver(false, &stubProvider{name: "stub", resolve: func(string) (string, error) { return "", boom }})

	if _, err := r.ResolveValue(context.Background(), "secretref:stub:x"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestResolver_ResolveTree(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"pw": "hunter2"}})

	in := map[string]any{
		"dsn":     "host=db user=app password=secretref:stub:pw",
		"timeout": 3,
		"headers": map[string]any{"Authorization": "Bearer secretref:stub:pw"},
		"hosts":   []any{"a", "secretref:stub:pw"},
		"names":   []string{"secretref:stub:pw"},
	}
	got, err := r.ResolveTree(context.Background(), in)
	if err != nil {
		t.Fatalf("ResolveTree: %v", err)
	}

	want := map[string]any{
		"dsn":     "host=db user=app password=hunter2",
		"timeout": 3,
		"headers": map[string]any{"Authorization": "Bearer hunter2"},
		"hosts":   []any{"a", "hunter2"},
		"names":   []string{"hunter2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolveTree mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_Close(t *testing.T) {
	a := &stubProvider{name: "a"}
	b := &stubProvider{name: "b", closeErr: errors.New("busy")}
	r := NewResolver(false, a, b, nil)

	err := r.Close()
	if err == nil || !a.closed || !b.closed {
		t.Errorf("Close() = %v, closed a=%v b=%v", err, a.closed, b.closed)
	}
}
