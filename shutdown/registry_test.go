package shutdown

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry_RunsInPriorityOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	record := func(name string) Func {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	r.Register("logger", 90, record("logger"))
	r.Register("http", 10, record("http"))
	r.Register("workers", 20, record("workers"))
	r.Register("http-2", 10, record("http-2"))

	want := []string{"http", "http-2", "workers", "logger"}
	if diff := cmp.Diff(want, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if errs := r.Run(context.Background()); len(errs) != 0 {
		t.Fatalf("Run() errors = %v", errs)
	}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("execution order mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_ContinuesPastErrors(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	ran := false

	r.Register("broken", 1, func(ctx context.Context) error { return boom })
	r.Register("after", 2, func(ctx context.Context) error {
		ran = true
		return nil
	})

	errs := r.Run(context.Background())
	if len(errs) != 1 {
		t.Fatalf("Run() returned %d errors, want 1", len(errs))
	}
	if !errors.Is(errs[0], boom) || !strings.HasPrefix(errs[0].Error(), "broken:") {
		t.Errorf("error = %v, want wrapped boom named broken", errs[0])
	}
	if !ran {
		t.Error("handler after failure did not run")
	}
}

func TestRegistry_RunOnce(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.Register("once", 1, func(ctx context.Context) error {
		calls++
		return nil
	})

	r.Run(context.Background())
	r.Run(context.Background())
	r.Register("late", 1, func(ctx context.Context) error {
		calls++
		return nil
	})
	r.Run(context.Background())

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
