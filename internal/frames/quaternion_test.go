package frames

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

func TestQuaternionFromMatrix_RoundTrip(t *testing.T) {
	qs := []quat.Number{
		{Real: 1},
		{Real: math.Cos(0.4), Kmag: math.Sin(0.4)},
		{Real: 0, Jmag: 1},
		{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5},
		{Real: 0.1, Imag: -0.7, Jmag: 0.1, Kmag: 0.7},
	}
	for _, q := range qs {
		q = quat.Scale(1/quat.Abs(q), q)
		got, err := QuaternionFromMatrix(MatrixFromQuaternion(q))
		require.NoError(t, err)
		// q and -q are the same rotation; the result is canonicalised to w >= 0.
		if q.Real < 0 {
			q = quat.Scale(-1, q)
		}
		assert.InDelta(t, q.Real, got.Real, 1e-12)
		assert.InDelta(t, q.Imag, got.Imag, 1e-12)
		assert.InDelta(t, q.Jmag, got.Jmag, 1e-12)
		assert.InDelta(t, q.Kmag, got.Kmag, 1e-12)
	}
}

func TestQuaternionFromMatrix_RejectsReflection(t *testing.T) {
	_, err := QuaternionFromMatrix(ProducerToNeutral.Matrix())
	assert.Error(t, err)

	_, err = QuaternionFromMatrix(mat.NewDense(2, 2, []float64{1, 0, 0, 1}))
	assert.Error(t, err)
}

func TestRotationQuaternion_ReproducesProperTransform(t *testing.T) {
	for _, tr := range []Transform{NeutralToConsumerA, NeutralToConsumerB} {
		p := tr.rotationQuaternion()
		assert.True(t, mat.EqualApprox(tr.Matrix(), MatrixFromQuaternion(p), 1e-12), tr.String())
	}

	// Across the flip the quaternion reproduces −M instead.
	p := ProducerToNeutral.rotationQuaternion()
	neg := ProducerToNeutral.Matrix()
	neg.Scale(-1, neg)
	assert.True(t, mat.EqualApprox(neg, MatrixFromQuaternion(p), 1e-12))
}
