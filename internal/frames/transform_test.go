package frames

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestConventionHandedness(t *testing.T) {
	tests := []struct {
		conv Convention
		want Handedness
	}{
		{Producer, LeftHanded},
		{Neutral, RightHanded},
		{ConsumerA, RightHanded},
		{ConsumerB, RightHanded},
	}
	for _, tt := range tests {
		t.Run(tt.conv.Name, func(t *testing.T) {
			require.NoError(t, tt.conv.Validate())
			assert.Equal(t, tt.want, tt.conv.Handedness())
		})
	}
}

func TestConventionValidate_RejectsDependentAxes(t *testing.T) {
	c := Convention{Name: "bad", X: Forward, Y: Back, Z: Up}
	assert.Error(t, c.Validate())
	assert.Error(t, Convention{X: Forward, Y: Left}.Validate())
}

func TestConventionByName(t *testing.T) {
	c, ok := ConventionByName("consumer_b")
	require.True(t, ok)
	assert.True(t, c.Equal(ConsumerB))

	_, ok = ConventionByName("enu")
	assert.False(t, ok)
}

func TestTransformMatrices(t *testing.T) {
	tests := []struct {
		name string
		tr   Transform
		rows []float64
		det  float64
	}{
		{"producer->neutral", ProducerToNeutral, []float64{1, 0, 0, 0, -1, 0, 0, 0, 1}, -1},
		{"neutral->consumer_a", NeutralToConsumerA, []float64{0, -1, 0, 0, 0, -1, 1, 0, 0}, 1},
		{"neutral->consumer_b", NeutralToConsumerB, []float64{0, 1, 0, 0, 0, 1, 1, 0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := mat.NewDense(3, 3, tt.rows)
			assert.True(t, mat.Equal(want, tt.tr.Matrix()), "matrix:\n%v", mat.Formatted(tt.tr.Matrix()))
			assert.InDelta(t, tt.det, tt.tr.Det(), 1e-12)
			assert.Equal(t, tt.det, tt.tr.Permutation().Det())
			assert.True(t, tt.tr.IsOrthonormal())
			assert.Equal(t, tt.det < 0, tt.tr.FlipsHandedness())
		})
	}
}

func TestTransformIsSignedPermutationOfUnitVectors(t *testing.T) {
	units := []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}, {X: -1}, {Y: -1}, {Z: -1}}
	for _, tr := range []Transform{ProducerToNeutral, NeutralToConsumerA, NeutralToConsumerB} {
		for _, u := range units {
			got := tr.Apply(u)
			assert.Equal(t, 1.0, r3.Norm(got), "%s(%v)", tr, u)
			nonZero := 0
			for _, c := range []float64{got.X, got.Y, got.Z} {
				if c != 0 {
					nonZero++
				}
			}
			assert.Equal(t, 1, nonZero, "%s(%v) = %v", tr, u, got)
		}
	}
}

func TestTransformRoundTripIsExact(t *testing.T) {
	v := r3.Vec{X: 0.123456789, Y: -98.7654321, Z: 3e-9}
	for _, tr := range []Transform{ProducerToNeutral, NeutralToConsumerA, NeutralToConsumerB} {
		back := tr.Inverse().Apply(tr.Apply(v))
		assert.Equal(t, v, back, tr.String())
		assert.True(t, tr.Inverse().Source().Equal(tr.Destination()))
	}
}

func TestTransformApply_ProducerToNeutral(t *testing.T) {
	got := ProducerToNeutral.Apply(r3.Vec{X: 1, Y: 2, Z: 3})
	assert.Equal(t, r3.Vec{X: 1, Y: -2, Z: 3}, got)
}

func TestTransformThen(t *testing.T) {
	composed, err := ProducerToNeutral.Then(NeutralToConsumerA)
	require.NoError(t, err)
	direct := MustTransform(Producer, ConsumerA)
	assert.Equal(t, direct.Permutation(), composed.Permutation())
	assert.InDelta(t, -1.0, composed.Det(), 1e-12)

	_, err = NeutralToConsumerA.Then(NeutralToConsumerB)
	assert.ErrorIs(t, err, ErrConventionMismatch)
}

func TestSignedPermutationValidate(t *testing.T) {
	assert.NoError(t, IdentityPermutation.Validate())
	assert.Error(t, SignedPermutation{Axis: [3]int{0, 0, 2}, Sign: [3]float64{1, 1, 1}}.Validate())
	assert.Error(t, SignedPermutation{Axis: [3]int{0, 1, 2}, Sign: [3]float64{1, 2, 1}}.Validate())
	assert.Error(t, SignedPermutation{Axis: [3]int{0, 1, 3}, Sign: [3]float64{1, 1, 1}}.Validate())
}
