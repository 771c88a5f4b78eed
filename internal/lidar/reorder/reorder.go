// Package reorder re-expresses lidar points in another axis convention by
// permuting and negating their spatial fields in place in a copy of the
// buffer. Every other byte of every point passes through untouched.
package reorder

import (
	"fmt"
	"math"

	"github.com/banshee-data/reframe/internal/frames"
	"github.com/banshee-data/reframe/internal/lidar/cloud"
)

// ProducerToNeutral maps simulator lidar points to the neutral convention:
// x' = −y, y' = x, z' = z.
var ProducerToNeutral = frames.SignedPermutation{
	Axis: [3]int{1, 0, 2},
	Sign: [3]float64{-1, 1, 1},
}

// Filter applies a fixed signed permutation to the x, y, z fields of every
// point.
type Filter struct {
	perm frames.SignedPermutation
}

// New returns a filter for perm.
func New(perm frames.SignedPermutation) (*Filter, error) {
	if err := perm.Validate(); err != nil {
		return nil, fmt.Errorf("reorder: %w", err)
	}
	return &Filter{perm: perm}, nil
}

// NewProducerToNeutral returns the simulator-to-neutral lidar filter.
func NewProducerToNeutral() *Filter {
	return &Filter{perm: ProducerToNeutral}
}

// Apply returns a new buffer with the same geometry, fields and byte layout
// as in, with only the spatial fields rewritten. in is not modified.
func (f *Filter) Apply(in cloud.PointBuffer) (cloud.PointBuffer, error) {
	if err := in.Validate(); err != nil {
		return cloud.PointBuffer{}, err
	}
	offs, err := spatialOffsets(&in)
	if err != nil {
		return cloud.PointBuffer{}, err
	}

	out := in
	out.Fields = append([]cloud.Field(nil), in.Fields...)
	out.Data = make([]byte, len(in.Data))
	copy(out.Data, in.Data)

	order := in.ByteOrder()
	step := int(in.PointStep)
	n := len(in.Data) / step
	for i := 0; i < n; i++ {
		p := out.Data[i*step : (i+1)*step]
		var v [3]float64
		for k, off := range offs {
			v[k] = float64(math.Float32frombits(order.Uint32(p[off:])))
		}
		w := f.perm.Apply(v)
		for k, off := range offs {
			order.PutUint32(p[off:], math.Float32bits(float32(w[k])))
		}
	}
	debugf("reorder: %s", out.Summary())
	return out, nil
}

// spatialOffsets finds the byte offsets of x, y and z. Declared float32
// fields win; without descriptors the first three fields are used.
func spatialOffsets(b *cloud.PointBuffer) ([3]int, error) {
	offs := [3]int{0, cloud.FieldSize, 2 * cloud.FieldSize}
	for k, name := range []string{"x", "y", "z"} {
		f, ok := b.Field(name)
		if !ok {
			continue
		}
		if f.Datatype != cloud.Float32 {
			return offs, fmt.Errorf("%w: field %s has datatype %d, want float32",
				cloud.ErrMalformedBuffer, name, f.Datatype)
		}
		offs[k] = int(f.Offset)
	}
	for k, off := range offs {
		if off+cloud.FieldSize > int(b.PointStep) {
			return offs, fmt.Errorf("%w: spatial field %d at offset %d does not fit point step %d",
				cloud.ErrMalformedBuffer, k, off, b.PointStep)
		}
	}
	return offs, nil
}
