package grid

import (
	"errors"
	"fmt"

	"github.com/banshee-data/reframe/internal/lidar/cloud"
)

// ErrInvalidConfiguration is returned for non-positive strides, channel
// counts or rate divisors.
var ErrInvalidConfiguration = errors.New("invalid downsample configuration")

// Params selects a position-addressable subset of a scan.
type Params struct {
	// Channels is the number of scan rings in the input.
	Channels int
	// VertDownsample keeps every n-th grid row.
	VertDownsample int
	// HorizDownsample keeps every n-th grid column.
	HorizDownsample int
	// Transpose swaps the grid axes before striding, so VertDownsample
	// applies to azimuth slices and HorizDownsample to channels.
	Transpose bool
}

// Validate rejects strides that would step by zero. Channels is checked by
// Config.Validate; Downsample tolerates any value.
func (p Params) Validate() error {
	if p.VertDownsample <= 0 {
		return fmt.Errorf("%w: vert_downsample must be positive, got %d", ErrInvalidConfiguration, p.VertDownsample)
	}
	if p.HorizDownsample <= 0 {
		return fmt.Errorf("%w: horiz_downsample must be positive, got %d", ErrInvalidConfiguration, p.HorizDownsample)
	}
	return nil
}

// Layout returns the view Downsample selects from for a scan of total
// points of pointLen fields, before striding.
func (p Params) Layout(total, pointLen int) View {
	if p.Channels <= 0 || p.Channels > total {
		return NewView(0, 0, pointLen)
	}
	v := NewView(p.Channels, total/p.Channels, pointLen)
	if p.Transpose {
		v = v.Transpose()
	}
	return v
}

// Downsample reshapes in into a channel × azimuth grid, strides it and
// flattens the survivors back into an unorganised buffer. Points past the
// last complete channel cycle are dropped without error. PointStep and the
// per-point byte layout are unchanged; Width is the surviving point count.
func Downsample(in cloud.PointBuffer, p Params) (cloud.PointBuffer, error) {
	if err := p.Validate(); err != nil {
		return cloud.PointBuffer{}, err
	}
	if err := in.Validate(); err != nil {
		return cloud.PointBuffer{}, err
	}
	if in.PointStep%cloud.FieldSize != 0 {
		return cloud.PointBuffer{}, fmt.Errorf("%w: point step %d is not a multiple of %d",
			cloud.ErrMalformedBuffer, in.PointStep, cloud.FieldSize)
	}
	pointLen := int(in.PointStep) / cloud.FieldSize
	total := len(in.Data) / int(in.PointStep)

	v := p.Layout(total, pointLen)
	if dropped := total - v.Len(); dropped > 0 {
		debugf("downsample: seq=%d truncating %d of %d points (channels=%d)", in.Header.Seq, dropped, total, p.Channels)
	}

	v, err := v.Slice(p.VertDownsample, p.HorizDownsample)
	if err != nil {
		return cloud.PointBuffer{}, err
	}
	data, err := v.Flatten(in.Data, cloud.FieldSize)
	if err != nil {
		return cloud.PointBuffer{}, fmt.Errorf("%w: %v", cloud.ErrMalformedBuffer, err)
	}
	return in.Flattened(data), nil
}
