package imagecodec

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"runtime"
	"testing"

	"github.com/unkn0wn-root/stowage"
	"github.com/unkn0wn-root/stowage/paths"
)

func gradient(w, h int, alpha bool) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(255)
			if alpha {
				a = uint8((x * 255) / w)
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 3), B: uint8(x + y), A: a})
		}
	}
	// flat band to exercise runs and the index
	for x := 0; x < w; x++ {
		img.SetNRGBA(x, h/2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	}
	return img
}

func samePixels(t *testing.T, a, b image.Image) {
	t.Helper()
	if a.Bounds().Size() != b.Bounds().Size() {
		t.Fatalf("size %v != %v", a.Bounds().Size(), b.Bounds().Size())
	}
	ab, bb := a.Bounds(), b.Bounds()
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			ca := color.NRGBAModel.Convert(a.At(ab.Min.X+x, ab.Min.Y+y))
			cb := color.NRGBAModel.Convert(b.At(bb.Min.X+x, bb.Min.Y+y))
			if ca != cb {
				t.Fatalf("pixel (%d,%d): %v != %v", x, y, ca, cb)
			}
		}
	}
}

func TestQOIRoundTrip(t *testing.T) {
	for _, alpha := range []bool{false, true} {
		src := gradient(67, 40, alpha)
		b, err := Encode(src, QOIRepr())
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !IsQOI(b) {
			t.Fatalf("missing qoif magic")
		}
		wantChannels := byte(3)
		if alpha {
			wantChannels = 4
		}
		if b[12] != wantChannels {
			t.Fatalf("channels = %d, want %d", b[12], wantChannels)
		}
		if !bytes.HasSuffix(b, qoiEnd[:]) {
			t.Fatalf("missing end marker")
		}

		got, f, err := Decode(b)
		if err != nil || f != QOI {
			t.Fatalf("Decode: format=%v err=%v", f, err)
		}
		samePixels(t, src, got)
	}
}

func TestQOILongRunSplits(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 1))
	for x := 0; x < 200; x++ {
		img.SetNRGBA(x, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	}
	b, err := Encode(img, QOIRepr())
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	samePixels(t, img, got)
}

func TestQOIRejectsCorruptInput(t *testing.T) {
	b, _ := Encode(gradient(8, 8, false), QOIRepr())

	_, _, err := Decode(b[:len(b)-12])
	var ce *ConversionError
	if !errors.As(err, &ce) || ce.Format != QOI {
		t.Fatalf("truncated: %v", err)
	}

	bad := bytes.Clone(b)
	bad[12] = 5
	if _, _, err := Decode(bad); err == nil {
		t.Fatalf("bad channel count accepted")
	}
}

func TestQOIRejectsOversizedHeaderBeforeAllocating(t *testing.T) {
	// 20000x20000 claimed, but only the end marker follows the header
	b := []byte("qoif\x00\x00\x4e\x20\x00\x00\x4e\x20\x04\x00")
	b = append(b, qoiEnd[:]...)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, _, err := Decode(b)
	runtime.ReadMemStats(&after)

	if !errors.Is(err, ErrQOITruncated) {
		t.Fatalf("Decode err = %v, want truncated", err)
	}
	if _, err := DecodeQOI(bytes.NewReader(b)); !errors.Is(err, ErrQOITruncated) {
		t.Fatalf("DecodeQOI err = %v, want truncated", err)
	}
	if grew := after.TotalAlloc - before.TotalAlloc; grew > 16<<20 {
		t.Fatalf("allocated %d bytes for a %d byte payload", grew, len(b))
	}
}

func TestQOIRegisteredWithImagePackage(t *testing.T) {
	b, _ := Encode(gradient(4, 4, false), QOIRepr())
	cfg, name, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil || name != "qoi" || cfg.Width != 4 || cfg.Height != 4 {
		t.Fatalf("DecodeConfig = %+v %q %v", cfg, name, err)
	}
}

func TestPNGAndJPEG(t *testing.T) {
	src := gradient(16, 16, false)

	b, err := Encode(src, PNGRepr())
	if err != nil {
		t.Fatal(err)
	}
	got, f, err := Decode(b)
	if err != nil || f != PNG {
		t.Fatalf("png decode: %v %v", f, err)
	}
	samePixels(t, src, got)

	low, err := Encode(src, JPEGRepr(0.1))
	if err != nil {
		t.Fatal(err)
	}
	high, err := Encode(src, JPEGRepr(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(low) >= len(high) {
		t.Fatalf("quality had no effect: %d >= %d", len(low), len(high))
	}
	if _, f, err := Decode(high); err != nil || f != JPEG {
		t.Fatalf("jpeg decode: %v %v", f, err)
	}
}

func TestJPEGQualityMapping(t *testing.T) {
	cases := map[float64]int{-1: 1, 0: 1, 0.5: 51, 1: 100, 2: 100}
	for in, want := range cases {
		if got := jpegQuality(in); got != want {
			t.Fatalf("jpegQuality(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestHEICUnsupported(t *testing.T) {
	_, err := Encode(gradient(2, 2, false), HEICRepr(0.8))
	var ce *ConversionError
	if !errors.As(err, &ce) || ce.Format != HEIC || !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, _, err := Decode([]byte("definitely not an image"))
	var ce *ConversionError
	if !errors.As(err, &ce) || ce.Op != "decode" {
		t.Fatalf("err = %v", err)
	}
}

func TestStoreLoadThroughStorage(t *testing.T) {
	ctx := context.Background()
	s, err := stowage.New(stowage.Options{Resolver: paths.Fixed(t.TempDir())})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	src := gradient(12, 9, true)
	tg := stowage.FileSystem{Location: stowage.LocationCache}

	path, err := Store(ctx, s, "avatar", src, tg, Representation{})
	if err != nil || path == "" {
		t.Fatalf("Store: %q %v", path, err)
	}
	raw, _, _ := s.Retrieve(ctx, "avatar", tg)
	if _, err := png.DecodeConfig(bytes.NewReader(raw)); err != nil {
		t.Fatalf("zero Representation should store PNG: %v", err)
	}

	if _, err := Store(ctx, s, "avatar-qoi", src, stowage.KeyValue{}, QOIRepr()); err != nil {
		t.Fatal(err)
	}
	got, err := Load(ctx, s, "avatar-qoi", stowage.KeyValue{})
	if err != nil {
		t.Fatal(err)
	}
	samePixels(t, src, got)

	if img, err := Load(ctx, s, "nobody", stowage.KeyValue{}); img != nil || err != nil {
		t.Fatalf("absent kv image = %v, %v", img, err)
	}

	if err := Remove(ctx, s, "avatar", tg); err != nil {
		t.Fatal(err)
	}
	_, err = Load(ctx, s, "avatar", tg)
	var ioErr *stowage.IOError
	if !errors.As(err, &ioErr) || !ioErr.NotFound() {
		t.Fatalf("Load after Remove: %v", err)
	}
}
