package imagecodec

import (
	"context"
	"image"

	"github.com/unkn0wn-root/stowage"
)

// Storage is the slice of stowage.Storage the helpers need.
type Storage interface {
	Store(ctx context.Context, key string, payload []byte, t stowage.Target) (string, error)
	Retrieve(ctx context.Context, key string, t stowage.Target) ([]byte, bool, error)
	Remove(ctx context.Context, key string, t stowage.Target) error
}

var _ Storage = stowage.Storage(nil)

// Store encodes img and stores the payload. The zero Representation means PNG.
func Store(ctx context.Context, s Storage, key string, img image.Image, t stowage.Target, r Representation) (string, error) {
	if r.Format == 0 {
		r = PNGRepr()
	}
	b, err := Encode(img, r)
	if err != nil {
		return "", err
	}
	return s.Store(ctx, key, b, t)
}

// Load retrieves and decodes an image. An absent KeyValue entry yields
// (nil, nil); an absent file is the storage's *stowage.IOError.
func Load(ctx context.Context, s Storage, key string, t stowage.Target) (image.Image, error) {
	b, ok, err := s.Retrieve(ctx, key, t)
	if err != nil || !ok {
		return nil, err
	}
	img, _, err := Decode(b)
	return img, err
}

func Remove(ctx context.Context, s Storage, key string, t stowage.Target) error {
	return s.Remove(ctx, key, t)
}
