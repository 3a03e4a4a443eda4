package stowage

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/unkn0wn-root/stowage/codec"
)

type settings struct {
	Theme    string `json:"theme" cbor:"theme" msgpack:"theme"`
	FontSize int    `json:"font_size" cbor:"font_size" msgpack:"font_size"`
}

func TestTypedJSONAndCBOR(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	want := settings{Theme: "dark", FontSize: 14}

	cases := map[string]codec.Codec[settings]{
		"json":    codec.JSON[settings]{},
		"cbor":    codec.MustCBOR[settings](true),
		"msgpack": codec.Msgpack[settings]{},
	}
	for name, cd := range cases {
		ts := NewTyped(f.s, cd)
		for _, tg := range []Target{KeyValue{}, FileSystem{Location: LocationLibrary}} {
			if _, err := ts.Store(ctx, "settings-"+name, want, tg); err != nil {
				t.Fatalf("%s/%s Store: %v", name, tg, err)
			}
			got, ok, err := ts.Retrieve(ctx, "settings-"+name, tg)
			if err != nil || !ok || got != want {
				t.Fatalf("%s/%s Retrieve = %+v ok=%v err=%v", name, tg, got, ok, err)
			}
		}
	}
}

func TestTypedProtobuf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	ts := NewTyped[*wrapperspb.StringValue](f.s, codec.NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }))

	if _, err := ts.Store(ctx, "greeting", wrapperspb.String("hello"), KeyValue{}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := ts.Retrieve(ctx, "greeting", KeyValue{})
	if err != nil || !ok || got.GetValue() != "hello" {
		t.Fatalf("Retrieve = %v ok=%v err=%v", got, ok, err)
	}
}

func TestTypedMissAndDecodeError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	ts := NewTyped[settings](f.s, codec.JSON[settings]{})

	if v, ok, err := ts.Retrieve(ctx, "absent", KeyValue{}); ok || err != nil || v != (settings{}) {
		t.Fatalf("miss = %+v ok=%v err=%v", v, ok, err)
	}

	if _, err := f.s.Store(ctx, "garbage", []byte("{not json"), KeyValue{}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ts.Retrieve(ctx, "garbage", KeyValue{}); err == nil {
		t.Fatalf("expected decode error")
	}

	_, _, err := ts.Retrieve(ctx, "absent", FileSystem{Location: LocationCache})
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("fs miss should surface IOError, got %v", err)
	}
}
