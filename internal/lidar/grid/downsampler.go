// Package grid decimates lidar scans by treating the flat point buffer as a
// channel × azimuth grid and keeping every n-th row and column.
package grid

import (
	"fmt"

	"github.com/banshee-data/reframe/internal/lidar/cloud"
)

// RateGate admits one record in every n, counting from the first.
type RateGate struct {
	n     uint64
	count uint64
}

// NewRateGate returns a gate admitting records whose index ≡ 0 mod n.
func NewRateGate(n int) (*RateGate, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: time_downsample must be positive, got %d", ErrInvalidConfiguration, n)
	}
	return &RateGate{n: uint64(n)}, nil
}

// Admit counts one record and reports whether it should be processed.
func (g *RateGate) Admit() bool {
	ok := g.count%g.n == 0
	g.count++
	return ok
}

// Seen returns the number of records counted so far.
func (g *RateGate) Seen() uint64 { return g.count }

// Downsampler applies the rate gate and then Downsample. It holds the gate
// counter, so one Downsampler serves one input stream and is not safe for
// concurrent use.
type Downsampler struct {
	params Params
	gate   *RateGate
}

// New validates everything up front so that a bad configuration never
// reaches the strided selection.
func New(p Params, timeDownsample int) (*Downsampler, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Channels <= 0 {
		return nil, fmt.Errorf("%w: channels must be positive, got %d", ErrInvalidConfiguration, p.Channels)
	}
	gate, err := NewRateGate(timeDownsample)
	if err != nil {
		return nil, err
	}
	return &Downsampler{params: p, gate: gate}, nil
}

// Params returns the selection parameters.
func (d *Downsampler) Params() Params { return d.params }

// Process returns ok=false with no output and no error when the record is
// rate-dropped.
func (d *Downsampler) Process(in cloud.PointBuffer) (cloud.PointBuffer, bool, error) {
	if !d.gate.Admit() {
		debugf("downsample: seq=%d dropped by rate gate", in.Header.Seq)
		return cloud.PointBuffer{}, false, nil
	}
	out, err := Downsample(in, d.params)
	if err != nil {
		return cloud.PointBuffer{}, true, err
	}
	return out, true, nil
}
