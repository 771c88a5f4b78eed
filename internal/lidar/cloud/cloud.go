// Package cloud defines PointBuffer, the flat byte layout shared by the
// lidar filters, and the structural checks that keep its declared geometry
// consistent with its bytes.
package cloud

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// FieldSize is the size in bytes of one float32 point field.
const FieldSize = 4

// ErrMalformedBuffer is returned when the byte length of a buffer does not
// agree with its declared point step, width or height.
var ErrMalformedBuffer = errors.New("malformed point buffer")

// Datatype codes, numbered as in sensor_msgs/PointField.
const (
	Int8    uint8 = 1
	Uint8   uint8 = 2
	Int16   uint8 = 3
	Uint16  uint8 = 4
	Int32   uint8 = 5
	Uint32  uint8 = 6
	Float32 uint8 = 7
	Float64 uint8 = 8
)

// Field describes one named field inside a point.
type Field struct {
	Name     string
	Offset   uint32
	Datatype uint8
	Count    uint32
}

// Header carries the ordering and provenance of a buffer.
type Header struct {
	Seq     uint64
	Stamp   time.Time
	FrameID string
}

// PointBuffer is a sequence of fixed-size points stored back to back.
type PointBuffer struct {
	Header Header

	Height    uint32 // rows; 1 for an unorganised cloud
	Width     uint32 // points per row
	PointStep uint32 // bytes per point
	RowStep   uint32 // bytes per row
	Fields    []Field

	IsBigEndian bool
	IsDense     bool
	Data        []byte
}

// XYZFields is the default layout of three float32 coordinates.
var XYZFields = []Field{
	{Name: "x", Offset: 0, Datatype: Float32, Count: 1},
	{Name: "y", Offset: 4, Datatype: Float32, Count: 1},
	{Name: "z", Offset: 8, Datatype: Float32, Count: 1},
}

// NumPoints returns the declared number of points.
func (b *PointBuffer) NumPoints() int {
	h := b.Height
	if h == 0 {
		h = 1
	}
	return int(h) * int(b.Width)
}

// Validate checks that the byte length is an exact multiple of PointStep and
// matches the declared point count.
func (b *PointBuffer) Validate() error {
	if b.PointStep == 0 {
		return fmt.Errorf("%w: zero point step", ErrMalformedBuffer)
	}
	if len(b.Data)%int(b.PointStep) != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of point step %d",
			ErrMalformedBuffer, len(b.Data), b.PointStep)
	}
	if got, want := len(b.Data)/int(b.PointStep), b.NumPoints(); got != want {
		return fmt.Errorf("%w: %d points in data, %d declared (width=%d height=%d)",
			ErrMalformedBuffer, got, want, b.Width, b.Height)
	}
	return nil
}

// Field looks up a field descriptor by name.
func (b *PointBuffer) Field(name string) (Field, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ByteOrder returns the byte order of the point data.
func (b *PointBuffer) ByteOrder() binary.ByteOrder {
	if b.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Point returns the bytes of point i. It does not copy.
func (b *PointBuffer) Point(i int) []byte {
	s := int(b.PointStep)
	return b.Data[i*s : (i+1)*s]
}

// Float32At decodes the float32 at byte offset off within point i.
func (b *PointBuffer) Float32At(i int, off uint32) float32 {
	p := b.Point(i)
	return math.Float32frombits(b.ByteOrder().Uint32(p[off : off+FieldSize]))
}

// Flattened returns a copy of b carrying data as an unorganised cloud:
// Height 1, Width recomputed from len(data), PointStep unchanged.
func (b *PointBuffer) Flattened(data []byte) PointBuffer {
	out := *b
	out.Fields = append([]Field(nil), b.Fields...)
	out.Data = data
	out.Height = 1
	if b.PointStep > 0 {
		out.Width = uint32(len(data) / int(b.PointStep))
	}
	out.RowStep = out.Width * out.PointStep
	return out
}

// Summary formats the geometry for log lines.
func (b *PointBuffer) Summary() string {
	return fmt.Sprintf("seq=%d %dx%d step=%d bytes=%d", b.Header.Seq, b.Height, b.Width, b.PointStep, len(b.Data))
}
