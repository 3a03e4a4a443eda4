package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// Protobuf encodes proto messages. New must return a fresh, empty message,
// e.g. func() *pb.Profile { return &pb.Profile{} }.
//
// Encoding is deterministic so that equal messages persist as equal payloads.
type Protobuf[T proto.Message] struct {
	New            func() T
	DiscardUnknown bool // drop fields written by a newer schema
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{New: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.New == nil {
		var zero T
		return zero, errors.New("codec: Protobuf.New is nil")
	}
	m := c.New()
	err := proto.UnmarshalOptions{DiscardUnknown: c.DiscardUnknown}.Unmarshal(b, m)
	return m, err
}
