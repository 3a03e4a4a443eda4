package prom

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/unkn0wn-root/stowage"
	"github.com/unkn0wn-root/stowage/paths"
)

func TestCountersThroughStorage(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	h, err := New(reg, "")
	if err != nil {
		t.Fatal(err)
	}

	s, err := stowage.New(stowage.Options{
		Resolver:      paths.Fixed(t.TempDir()),
		Hooks:         h,
		MaxEntryBytes: 16,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	tg := stowage.FileSystem{Location: stowage.LocationCache}
	if _, err := s.Store(ctx, "small", []byte("hi"), tg); err != nil {
		t.Fatal(err)
	}
	_, _, _ = s.Retrieve(ctx, "small", tg)
	_, _, _ = s.Retrieve(ctx, "missing", tg)
	if _, err := s.Store(ctx, "big", bytes.Repeat([]byte("x"), 16), stowage.KeyValue{}); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(h.hits.WithLabelValues("fs:cache")); got != 1 {
		t.Fatalf("hits = %v", got)
	}
	if got := testutil.ToFloat64(h.misses.WithLabelValues("fs:cache")); got != 1 {
		t.Fatalf("misses = %v", got)
	}
	if got := testutil.ToFloat64(h.backendErrors.WithLabelValues("fs:cache", "retrieve")); got != 1 {
		t.Fatalf("backend errors = %v", got)
	}
	if got := testutil.ToFloat64(h.admitSkipped.WithLabelValues("kv", "oversize")); got != 1 {
		t.Fatalf("oversize skips = %v", got)
	}
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg, "app"); err != nil {
		t.Fatal(err)
	}
	if _, err := New(reg, "app"); err == nil {
		t.Fatalf("second registration under the same namespace should fail")
	}
	if _, err := New(nil, "app"); err != nil {
		t.Fatalf("nil registerer: %v", err)
	}
}
