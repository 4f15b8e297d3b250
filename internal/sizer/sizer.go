// Package sizer estimates how many bytes a cached value occupies.
//
// The estimate is exact for byte slices and strings, uses the wire size for
// protobuf messages and falls back to the length of a JSON encoding for
// anything else. It is an approximation of payload size, not of heap usage.
package sizer

import (
	"encoding"

	json "github.com/goccy/go-json"
	"google.golang.org/protobuf/proto"
)

// Sized is implemented by values that know their own size.
type Sized interface {
	Size() int64
}

// Estimate returns the estimated size of v in bytes. Values that cannot be
// serialized (channels, funcs) are reported as zero.
func Estimate(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case []byte:
		return int64(len(t))
	case string:
		return int64(len(t))
	case Sized:
		return clamp(t.Size())
	case proto.Message:
		return int64(proto.Size(t))
	case encoding.BinaryMarshaler:
		b, err := t.MarshalBinary()
		if err == nil {
			return int64(len(b))
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int64(len(b))
}

func clamp(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
