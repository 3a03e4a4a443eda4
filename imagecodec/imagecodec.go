// Package imagecodec converts images to and from the byte payloads kept by
// stowage. Supported encodings are PNG, JPEG and QOI; HEIC is recognized as a
// representation but cannot be produced. Decode sniffs the QOI signature
// before handing the payload to the registered image decoders.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // decode only
	"image/jpeg"
	"image/png"
	"math"
	"strings"
)

type Format uint8

const (
	PNG Format = iota + 1
	JPEG
	HEIC
	QOI
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case HEIC:
		return "heic"
	case QOI:
		return "qoi"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// ParseFormat accepts the names produced by Format.String plus "jpg".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "heic":
		return HEIC, nil
	case "qoi":
		return QOI, nil
	}
	return 0, fmt.Errorf("imagecodec: unknown format %q", s)
}

// Representation selects an encoding. Quality (0..1) is used by the lossy
// formats only.
type Representation struct {
	Format  Format
	Quality float64
}

func PNGRepr() Representation                 { return Representation{Format: PNG} }
func QOIRepr() Representation                 { return Representation{Format: QOI} }
func JPEGRepr(quality float64) Representation { return Representation{Format: JPEG, Quality: quality} }
func HEICRepr(quality float64) Representation { return Representation{Format: HEIC, Quality: quality} }

var ErrUnsupported = errors.New("imagecodec: unsupported representation")

// ConversionError reports a failed image <-> payload conversion.
type ConversionError struct {
	Op     string // "encode" or "decode"
	Format Format // zero when decode could not identify the payload
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Format == 0 {
		return fmt.Sprintf("imagecodec: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("imagecodec: %s %s: %v", e.Op, e.Format, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Encode renders img in the requested representation.
func Encode(img image.Image, r Representation) ([]byte, error) {
	if img == nil {
		return nil, &ConversionError{Op: "encode", Format: r.Format, Err: errors.New("nil image")}
	}

	var buf bytes.Buffer
	var err error
	switch r.Format {
	case PNG:
		err = png.Encode(&buf, img)
	case JPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(r.Quality)})
	case QOI:
		err = EncodeQOI(&buf, img)
	case HEIC:
		err = ErrUnsupported
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupported, r.Format)
	}
	if err != nil {
		return nil, &ConversionError{Op: "encode", Format: r.Format, Err: err}
	}
	return buf.Bytes(), nil
}

// Decode parses a payload produced by Encode, or any PNG, JPEG or GIF.
func Decode(b []byte) (image.Image, Format, error) {
	if IsQOI(b) {
		img, err := decodeQOI(b)
		if err != nil {
			return nil, QOI, &ConversionError{Op: "decode", Format: QOI, Err: err}
		}
		return img, QOI, nil
	}

	img, name, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, 0, &ConversionError{Op: "decode", Err: err}
	}
	f, _ := ParseFormat(name)
	return img, f, nil
}

// jpegQuality maps 0..1 onto the encoder's 1..100. Out-of-range values clamp.
func jpegQuality(q float64) int {
	if math.IsNaN(q) || q <= 0 {
		return 1
	}
	if q >= 1 {
		return 100
	}
	return 1 + int(math.Round(q*99))
}
