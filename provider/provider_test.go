package provider

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
)

type testProvider struct {
	name      string
	available bool
	checks    int
}

func (p *testProvider) Name() string { return p.name }
func (p *testProvider) IsAvailable(ctx context.Context) bool {
	p.checks++
	return p.available
}

func newTestRegistry(t *testing.T, providers ...*testProvider) *Registry[*testProvider] {
	t.Helper()
	reg := NewRegistry[*testProvider]()
	for _, p := range providers {
		if err := reg.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.name, err)
		}
	}
	return reg
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := newTestRegistry(t, &testProvider{name: "openai"})
	p, ok := reg.Get("openai")
	if !ok || p.Name() != "openai" {
		t.Fatal("expected to find openai")
	}
	if _, ok := reg.Get("missing"); ok {
		t.Error("expected missing provider to be absent")
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 provider, got %d", reg.Len())
	}
}

func TestRegistry_RejectsDuplicateAndEmptyNames(t *testing.T) {
	reg := newTestRegistry(t, &testProvider{name: "openai"})
	if err := reg.Register(&testProvider{name: "openai"}); err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Errorf("expected duplicate error, got %v", err)
	}
	if err := reg.Register(&testProvider{}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	reg := newTestRegistry(t, &testProvider{name: "b"}, &testProvider{name: "a"}, &testProvider{name: "c"})
	if got := reg.Names(); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Errorf("expected registration order, got %v", got)
	}
}

func TestRegistry_SetPriority(t *testing.T) {
	reg := newTestRegistry(t,
		&testProvider{name: "whisper"},
		&testProvider{name: "openai"},
		&testProvider{name: "elevenlabs"},
		&testProvider{name: "cloudflare"},
	)
	reg.SetPriority([]string{"elevenlabs", "unknown", "openai", "elevenlabs"})

	want := []string{"elevenlabs", "openai", "whisper", "cloudflare"}
	if got := reg.Names(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	all := reg.All()
	for i, p := range all {
		if p.Name() != want[i] {
			t.Errorf("All()[%d] = %s, want %s", i, p.Name(), want[i])
		}
	}
}

func TestRegistry_NamesIsCopy(t *testing.T) {
	reg := newTestRegistry(t, &testProvider{name: "a"}, &testProvider{name: "b"})
	names := reg.Names()
	names[0] = "mutated"
	if reg.Names()[0] != "a" {
		t.Error("Names must return a copy")
	}
}

func TestPrioritySelector_FirstAvailable(t *testing.T) {
	a := &testProvider{name: "a", available: false}
	b := &testProvider{name: "b", available: true}
	c := &testProvider{name: "c", available: true}

	sel := &PrioritySelector[*testProvider]{}
	got, err := sel.Select(context.Background(), []*testProvider{a, b, c})
	if err != nil || got.Name() != "b" {
		t.Fatalf("expected b, got %v, %v", got, err)
	}
	if c.checks != 0 {
		t.Error("selection should stop at the first available provider")
	}
}

func TestPrioritySelector_Skip(t *testing.T) {
	a := &testProvider{name: "a", available: true}
	b := &testProvider{name: "b", available: true}
	sel := &PrioritySelector[*testProvider]{Skip: func(p *testProvider) bool { return p.name == "a" }}

	got, err := sel.Select(context.Background(), []*testProvider{a, b})
	if err != nil || got.Name() != "b" {
		t.Fatalf("expected b, got %v, %v", got, err)
	}
	if a.checks != 0 {
		t.Error("skipped providers must not be checked")
	}
}

func TestPrioritySelector_NoneAvailable(t *testing.T) {
	sel := &PrioritySelector[*testProvider]{}
	_, err := sel.Select(context.Background(), []*testProvider{{name: "a"}})
	if !errors.Is(err, ErrNoneAvailable) {
		t.Errorf("expected ErrNoneAvailable, got %v", err)
	}
}

func TestAvailable_ChecksEveryCall(t *testing.T) {
	a := &testProvider{name: "a", available: true}
	b := &testProvider{name: "b", available: false}
	candidates := []*testProvider{a, b}

	if got := Available(context.Background(), candidates); len(got) != 1 || got[0] != a {
		t.Fatalf("expected [a], got %v", got)
	}
	b.available = true
	if got := Available(context.Background(), candidates); len(got) != 2 {
		t.Fatalf("expected availability to be recomputed, got %v", got)
	}
	if a.checks != 2 || b.checks != 2 {
		t.Errorf("expected each provider checked twice, got a=%d b=%d", a.checks, b.checks)
	}
}

type healthProvider struct{ testProvider }

func (h *healthProvider) Health(context.Context) HealthStatus {
	return HealthStatus{Status: StatusDegraded, Message: "breaker open"}
}

func TestCheckHealth(t *testing.T) {
	ctx := context.Background()
	if got := CheckHealth(ctx, &testProvider{name: "a", available: true}); got.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", got.Status)
	}
	if got := CheckHealth(ctx, &testProvider{name: "a"}); got.Status != StatusUnavailable {
		t.Errorf("expected unavailable, got %s", got.Status)
	}
	if got := CheckHealth(ctx, &healthProvider{testProvider{name: "h"}}); got.Status != StatusDegraded {
		t.Errorf("expected HealthChecker result, got %s", got.Status)
	}
}

func TestStatus_JSON(t *testing.T) {
	data, err := json.Marshal(HealthStatus{Status: StatusDegraded})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"status":"degraded"}` {
		t.Errorf("unexpected json %s", data)
	}
}
