package sizer

import (
	"testing"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fixedSize int64

func (f fixedSize) Size() int64 { return int64(f) }

type page struct {
	Title string `json:"title"`
	Views int    `json:"views"`
}

func TestEstimate(t *testing.T) {
	msg := wrapperspb.String("hello, cache")

	tests := []struct {
		name string
		v    any
		want int64
	}{
		{"nil", nil, 0},
		{"bytes", []byte("abcdef"), 6},
		{"empty bytes", []byte{}, 0},
		{"ascii string", "hello", 5},
		{"multibyte string", "héllo", 6},
		{"sized", fixedSize(42), 42},
		{"negative sized", fixedSize(-3), 0},
		{"protobuf", msg, int64(proto.Size(msg))},
		{"struct", page{Title: "a", Views: 1}, int64(len(`{"title":"a","views":1}`))},
		{"int", 12345, 5},
		{"channel", make(chan int), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.v); got != tt.want {
				t.Errorf("Estimate() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimate_BinaryMarshaler(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	b, err := ts.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if got := Estimate(ts); got != int64(len(b)) {
		t.Errorf("Estimate(time) = %d, want %d", got, len(b))
	}
}
