// Package codec converts typed values to and from the opaque byte payloads
// stored by stowage. The facade itself never interprets payloads; codecs are
// used by Typed[V] and by the prefs key/value store for its snapshot file.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
