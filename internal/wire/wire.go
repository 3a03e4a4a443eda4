// Package wire frames the prefs key/value snapshot file.
//
//	magic(4) | ver(1) | format(1) | plen(u32 be) | payload(plen)
//
// The format byte records which codec produced payload, so a store opened
// with a different codec can still read an existing file.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	version byte = 1
	hdrLen       = 4 + 1 + 1 + 4
)

var (
	ErrCorrupt  = errors.New("stowage: corrupt snapshot")
	ErrTooLarge = errors.New("stowage: snapshot payload too large")
	magic4      = [...]byte{'S', 'T', 'W', 'P'}
)

// MaxPayload is the largest payload the u32 length field can describe.
var MaxPayload uint64 = math.MaxUint32

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

func EncodeSnapshot(format byte, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(format)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes(), nil
}

// DecodeSnapshot validates the header and returns the codec format and payload.
// Trailing bytes after payload are treated as corruption.
func DecodeSnapshot(b []byte) (format byte, payload []byte, err error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return 0, nil, ErrCorrupt
	}
	format = b[5]
	if format == 0 {
		return 0, nil, ErrCorrupt
	}

	off := 6
	plen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if plen < 0 || plen != len(b)-off {
		return 0, nil, ErrCorrupt
	}
	return format, b[off : off+plen], nil
}
