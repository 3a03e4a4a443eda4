package filestore

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// below this size a zstd frame is rarely smaller than the input
const minCompressSize = 128

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

type compressor struct {
	level   int
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (c *compressor) init() error {
	var lvl zstd.EncoderLevel
	switch c.level {
	case 1:
		lvl = zstd.SpeedFastest
	case 3:
		lvl = zstd.SpeedBetterCompression
	default:
		lvl = zstd.SpeedDefault
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(lvl),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		return err
	}
	c.encoder = enc
	c.decoder = dec
	return nil
}

// compress returns a zstd frame, or data unchanged when compression does not pay.
func (c *compressor) compress(data []byte) []byte {
	if len(data) < minCompressSize {
		return data
	}
	out := c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
	if len(out) >= len(data) {
		return data
	}
	return out
}

// decompress reverses compress. Files without the zstd magic were stored raw.
func (c *compressor) decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("filestore: decompress: %w", err)
	}
	return out, nil
}

func (c *compressor) close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
