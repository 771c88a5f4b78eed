package grid

import (
	"testing"

	"github.com/banshee-data/reframe/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateGate(t *testing.T) {
	g, err := NewRateGate(3)
	require.NoError(t, err)

	var got []bool
	for i := 0; i < 9; i++ {
		got = append(got, g.Admit())
	}
	assert.Equal(t, []bool{true, false, false, true, false, false, true, false, false}, got)
	assert.Equal(t, uint64(9), g.Seen())
}

func TestRateGate_OneAdmitsEverything(t *testing.T) {
	g, err := NewRateGate(1)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.True(t, g.Admit())
	}
}

func TestNewRateGate_RejectsNonPositive(t *testing.T) {
	_, err := NewRateGate(0)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNew_FailsFast(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		time int
	}{
		{"zero vertical stride", Params{Channels: 64, VertDownsample: 0, HorizDownsample: 2}, 1},
		{"zero horizontal stride", Params{Channels: 64, VertDownsample: 4, HorizDownsample: 0}, 1},
		{"zero channels", Params{Channels: 0, VertDownsample: 4, HorizDownsample: 2}, 1},
		{"zero time stride", Params{Channels: 64, VertDownsample: 4, HorizDownsample: 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.p, tt.time)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Nil(t, d)
		})
	}
}

func TestDownsamplerProcess_TimeDownsample(t *testing.T) {
	d, err := New(Params{Channels: 4, VertDownsample: 2, HorizDownsample: 2}, 3)
	require.NoError(t, err)

	var emitted []int
	for i := 0; i < 6; i++ {
		in := testutil.IndexedCloud(16, 3)
		in.Header.Seq = uint64(i)
		out, ok, err := d.Process(in)
		require.NoError(t, err)
		if !ok {
			assert.Empty(t, out.Data)
			continue
		}
		assert.Equal(t, uint32(4), out.Width)
		emitted = append(emitted, int(out.Header.Seq))
	}
	assert.Equal(t, []int{0, 3}, emitted)
}

func TestDownsamplerProcess_MalformedStillCounts(t *testing.T) {
	d, err := New(Params{Channels: 4, VertDownsample: 1, HorizDownsample: 1}, 2)
	require.NoError(t, err)

	bad := testutil.IndexedCloud(8, 3)
	bad.Data = bad.Data[:5]
	_, ok, err := d.Process(bad)
	assert.True(t, ok)
	assert.Error(t, err)

	// The next record is the second one counted, so it is dropped.
	_, ok, err = d.Process(testutil.IndexedCloud(8, 3))
	assert.False(t, ok)
	assert.NoError(t, err)
}
