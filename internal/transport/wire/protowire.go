package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	return appendBytes(b, num, m)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendSfixed64(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, uint64(v))
}

func appendPackedDoubles(b []byte, num protowire.Number, vs []float64) []byte {
	packed := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	return appendBytes(b, num, packed)
}

// walk calls fn for every field of a message. fn returns the number of bytes
// of b it consumed.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: tag: %v", ErrDecode, protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func wantType(num protowire.Number, got, want protowire.Type) error {
	if got != want {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrDecode, num, got, want)
	}
	return nil
}

func parseErr(num protowire.Number, n int) error {
	return fmt.Errorf("%w: field %d: %v", ErrDecode, num, protowire.ParseError(n))
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, parseErr(num, n)
	}
	return n, nil
}

func consumeMessage(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("%w: embedded message has wire type %d", ErrDecode, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: embedded message: %v", ErrDecode, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeString(typ protowire.Type, b []byte) (string, int, error) {
	v, n, err := consumeMessage(typ, b)
	return string(v), n, err
}

// consumeBytesCopy returns a copy so decoded buffers never alias the
// caller's receive buffer.
func consumeBytesCopy(typ protowire.Type, b []byte) ([]byte, int, error) {
	v, n, err := consumeMessage(typ, b)
	if err != nil {
		return nil, n, err
	}
	return append([]byte{}, v...), n, nil
}

func consumeVarint(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if err := wantType(num, typ, protowire.VarintType); err != nil {
		return 0, 0, err
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, parseErr(num, n)
	}
	return v, n, nil
}

func consumeUint32(num protowire.Number, typ protowire.Type, b []byte) (uint32, int, error) {
	v, n, err := consumeVarint(num, typ, b)
	if err == nil && v > math.MaxUint32 {
		err = fmt.Errorf("%w: field %d value %d overflows uint32", ErrDecode, num, v)
	}
	return uint32(v), n, err
}

func consumeFixed64(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if err := wantType(num, typ, protowire.Fixed64Type); err != nil {
		return 0, 0, err
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, 0, parseErr(num, n)
	}
	return v, n, nil
}

func consumeDouble(num protowire.Number, typ protowire.Type, b []byte) (float64, int, error) {
	v, n, err := consumeFixed64(num, typ, b)
	return math.Float64frombits(v), n, err
}

func consumePackedDoubles(num protowire.Number, typ protowire.Type, b []byte, dst []float64) (int, error) {
	v, n, err := consumeMessage(typ, b)
	if err != nil {
		return n, err
	}
	if len(v) != 8*len(dst) {
		return n, fmt.Errorf("%w: field %d has %d bytes, want %d doubles", ErrDecode, num, len(v), len(dst))
	}
	for i := range dst {
		bits, m := protowire.ConsumeFixed64(v)
		if m < 0 {
			return n, parseErr(num, m)
		}
		dst[i] = math.Float64frombits(bits)
		v = v[m:]
	}
	return n, nil
}
