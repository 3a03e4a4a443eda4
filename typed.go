package stowage

import (
	"context"
	"fmt"

	c "github.com/unkn0wn-root/stowage/codec"
)

// Typed stores values of type V through a Storage, encoding them with a Codec.
// Cache behavior, targets and error semantics are those of the wrapped Storage;
// the cache holds encoded bytes.
type Typed[V any] struct {
	s     Storage
	codec c.Codec[V]
}

func NewTyped[V any](s Storage, codec c.Codec[V]) *Typed[V] {
	return &Typed[V]{s: s, codec: codec}
}

func (t *Typed[V]) Store(ctx context.Context, key string, v V, target Target) (string, error) {
	b, err := t.codec.Encode(v)
	if err != nil {
		return "", fmt.Errorf("stowage: encode %q: %w", key, err)
	}
	return t.s.Store(ctx, key, b, target)
}

// Retrieve decodes the stored payload. A KeyValue miss is (zero, false, nil).
func (t *Typed[V]) Retrieve(ctx context.Context, key string, target Target) (V, bool, error) {
	var zero V
	b, ok, err := t.s.Retrieve(ctx, key, target)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := t.codec.Decode(b)
	if err != nil {
		return zero, false, fmt.Errorf("stowage: decode %q: %w", key, err)
	}
	return v, true, nil
}

func (t *Typed[V]) Remove(ctx context.Context, key string, target Target) error {
	return t.s.Remove(ctx, key, target)
}
