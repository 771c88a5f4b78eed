// Package testutil provides shared test utilities and fixtures.
//
// Point buffers used across the lidar and node tests are built here so the
// byte layout is defined in one place.
package testutil

import (
	"encoding/binary"
	"math"
	"strconv"
	"testing"

	"github.com/banshee-data/reframe/internal/lidar/cloud"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewCloud packs points of pointLen float32 fields each into a little-endian
// unorganised buffer. The first three fields are declared as x, y, z; any
// further fields are named f3, f4, ...
func NewCloud(points [][]float32, pointLen int) cloud.PointBuffer {
	step := pointLen * cloud.FieldSize
	data := make([]byte, len(points)*step)
	for i, p := range points {
		for j := 0; j < pointLen && j < len(p); j++ {
			binary.LittleEndian.PutUint32(data[i*step+j*cloud.FieldSize:], math.Float32bits(p[j]))
		}
	}
	fields := make([]cloud.Field, 0, pointLen)
	names := []string{"x", "y", "z"}
	for j := 0; j < pointLen; j++ {
		name := "f" + strconv.Itoa(j)
		if j < len(names) {
			name = names[j]
		}
		fields = append(fields, cloud.Field{Name: name, Offset: uint32(j * cloud.FieldSize), Datatype: cloud.Float32, Count: 1})
	}
	return cloud.PointBuffer{
		Height:    1,
		Width:     uint32(len(points)),
		PointStep: uint32(step),
		RowStep:   uint32(len(points) * step),
		Fields:    fields,
		IsDense:   true,
		Data:      data,
	}
}

// IndexedCloud returns n points whose first field is the point's index, so
// a filtered buffer can be read back as the list of surviving indices.
func IndexedCloud(n, pointLen int) cloud.PointBuffer {
	pts := make([][]float32, n)
	for i := range pts {
		p := make([]float32, pointLen)
		p[0] = float32(i)
		for j := 1; j < pointLen; j++ {
			p[j] = float32(i*10 + j)
		}
		pts[i] = p
	}
	return NewCloud(pts, pointLen)
}

// Points unpacks every float32 field of every point.
func Points(b cloud.PointBuffer) [][]float32 {
	step := int(b.PointStep)
	if step == 0 {
		return nil
	}
	n := len(b.Data) / step
	order := b.ByteOrder()
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		p := make([]float32, step/cloud.FieldSize)
		for j := range p {
			p[j] = math.Float32frombits(order.Uint32(b.Data[i*step+j*cloud.FieldSize:]))
		}
		out[i] = p
	}
	return out
}

// Indices returns the first field of every point as an int.
func Indices(b cloud.PointBuffer) []int {
	pts := Points(b)
	out := make([]int, len(pts))
	for i, p := range pts {
		out[i] = int(p[0])
	}
	return out
}
