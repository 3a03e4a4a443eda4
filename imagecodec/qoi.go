package imagecodec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

// QOI: https://qoiformat.org/qoi-specification.pdf

const (
	qoiMagic      = "qoif"
	qoiHeaderSize = 14
	qoiMaxPixels  = 400_000_000

	opIndex = 0x00
	opDiff  = 0x40
	opLuma  = 0x80
	opRun   = 0xc0
	opRGB   = 0xfe
	opRGBA  = 0xff
	opMask  = 0xc0
)

var qoiEnd = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}

var ErrQOITruncated = errors.New("qoi: truncated stream")

func init() {
	image.RegisterFormat("qoi", qoiMagic, DecodeQOI, DecodeQOIConfig)
}

// IsQOI reports whether b starts with the QOI signature.
func IsQOI(b []byte) bool {
	return len(b) >= len(qoiMagic) && string(b[:len(qoiMagic)]) == qoiMagic
}

type qoiHeader struct {
	width, height uint32
	channels      uint8
	colorspace    uint8
}

func readQOIHeader(r io.Reader) (qoiHeader, error) {
	var raw [qoiHeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return qoiHeader{}, fmt.Errorf("qoi: header: %w", err)
	}
	if string(raw[:4]) != qoiMagic {
		return qoiHeader{}, errors.New("qoi: bad magic")
	}
	h := qoiHeader{
		width:      binary.BigEndian.Uint32(raw[4:8]),
		height:     binary.BigEndian.Uint32(raw[8:12]),
		channels:   raw[12],
		colorspace: raw[13],
	}
	switch {
	case h.width == 0 || h.height == 0:
		return h, errors.New("qoi: zero dimension")
	case h.channels != 3 && h.channels != 4:
		return h, fmt.Errorf("qoi: bad channel count %d", h.channels)
	case h.colorspace > 1:
		return h, fmt.Errorf("qoi: bad colorspace %d", h.colorspace)
	case uint64(h.width)*uint64(h.height) > qoiMaxPixels:
		return h, errors.New("qoi: image too large")
	}
	return h, nil
}

func DecodeQOIConfig(r io.Reader) (image.Config, error) {
	h, err := readQOIHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: int(h.width), Height: int(h.height)}, nil
}

func qoiHash(c color.NRGBA) int {
	return (int(c.R)*3 + int(c.G)*5 + int(c.B)*7 + int(c.A)*11) % 64
}

// DecodeQOI reads a QOI image into an *image.NRGBA.
func DecodeQOI(r io.Reader) (image.Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeQOI(b)
}

// decodeQOI checks the header against the stream length before allocating
// pixels, so a short payload cannot claim a huge canvas.
func decodeQOI(b []byte) (image.Image, error) {
	h, err := readQOIHeader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	data := b[qoiHeaderSize:]
	if len(data) < len(qoiEnd) {
		return nil, ErrQOITruncated
	}
	// a single RUN op covers at most 62 pixels
	if uint64(h.width)*uint64(h.height) > uint64(len(data)-len(qoiEnd))*62 {
		return nil, ErrQOITruncated
	}
	br := bytes.NewReader(data)
	next := func() (byte, error) {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			return 0, ErrQOITruncated
		}
		return b, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(h.width), int(h.height)))
	var index [64]color.NRGBA
	px := color.NRGBA{A: 255}
	run := 0

	for off := 0; off < len(img.Pix); off += 4 {
		if run > 0 {
			run--
		} else {
			b1, err := next()
			if err != nil {
				return nil, err
			}
			switch {
			case b1 == opRGB:
				var rgb [3]byte
				if _, err := io.ReadFull(br, rgb[:]); err != nil {
					return nil, ErrQOITruncated
				}
				px.R, px.G, px.B = rgb[0], rgb[1], rgb[2]
			case b1 == opRGBA:
				var rgba [4]byte
				if _, err := io.ReadFull(br, rgba[:]); err != nil {
					return nil, ErrQOITruncated
				}
				px = color.NRGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
			case b1&opMask == opIndex:
				px = index[b1]
			case b1&opMask == opDiff:
				px.R += (b1>>4)&0x03 - 2
				px.G += (b1>>2)&0x03 - 2
				px.B += b1&0x03 - 2
			case b1&opMask == opLuma:
				b2, err := next()
				if err != nil {
					return nil, err
				}
				vg := b1&0x3f - 32
				px.R += vg - 8 + (b2>>4)&0x0f
				px.G += vg
				px.B += vg - 8 + b2&0x0f
			case b1&opMask == opRun:
				run = int(b1 & 0x3f)
			}
			index[qoiHash(px)] = px
		}
		img.Pix[off+0] = px.R
		img.Pix[off+1] = px.G
		img.Pix[off+2] = px.B
		img.Pix[off+3] = px.A
	}

	var end [8]byte
	if _, err := io.ReadFull(br, end[:]); err != nil || end != qoiEnd {
		return nil, errors.New("qoi: missing end marker")
	}
	return img, nil
}

// EncodeQOI writes img as QOI. Fully opaque images are tagged with 3 channels.
func EncodeQOI(w io.Writer, img image.Image) error {
	src := toNRGBA(img)
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return errors.New("qoi: empty image")
	}
	if uint64(width)*uint64(height) > qoiMaxPixels {
		return errors.New("qoi: image too large")
	}

	channels := uint8(3)
	for i := 3; i < len(src.Pix); i += 4 {
		if src.Pix[i] != 255 {
			channels = 4
			break
		}
	}

	bw := bufio.NewWriter(w)
	var hdr [qoiHeaderSize]byte
	copy(hdr[:4], qoiMagic)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(width))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(height))
	hdr[12] = channels
	hdr[13] = 0 // sRGB with linear alpha
	bw.Write(hdr[:])

	var index [64]color.NRGBA
	prev := color.NRGBA{A: 255}
	run := 0
	total := width * height
	n := 0

	for y := 0; y < height; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+width*4]
		for x := 0; x < width; x++ {
			p := row[x*4 : x*4+4]
			px := color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
			n++

			if px == prev {
				run++
				if run == 62 || n == total {
					bw.WriteByte(opRun | byte(run-1))
					run = 0
				}
				continue
			}
			if run > 0 {
				bw.WriteByte(opRun | byte(run-1))
				run = 0
			}

			h := qoiHash(px)
			if index[h] == px {
				bw.WriteByte(opIndex | byte(h))
				prev = px
				continue
			}
			index[h] = px

			if px.A != prev.A {
				bw.Write([]byte{opRGBA, px.R, px.G, px.B, px.A})
				prev = px
				continue
			}

			vr := int8(px.R - prev.R)
			vg := int8(px.G - prev.G)
			vb := int8(px.B - prev.B)
			vgr := vr - vg
			vgb := vb - vg

			switch {
			case vr > -3 && vr < 2 && vg > -3 && vg < 2 && vb > -3 && vb < 2:
				bw.WriteByte(opDiff | byte(vr+2)<<4 | byte(vg+2)<<2 | byte(vb+2))
			case vgr > -9 && vgr < 8 && vg > -33 && vg < 32 && vgb > -9 && vgb < 8:
				bw.Write([]byte{opLuma | byte(vg+32), byte(vgr+8)<<4 | byte(vgb+8)})
			default:
				bw.Write([]byte{opRGB, px.R, px.G, px.B})
			}
			prev = px
		}
	}

	bw.Write(qoiEnd[:])
	return bw.Flush()
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return out
}
