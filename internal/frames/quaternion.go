package frames

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// QuaternionFromMatrix returns the unit quaternion of a proper rotation
// matrix (Shepperd's method). The result has a non-negative real part.
func QuaternionFromMatrix(m mat.Matrix) (quat.Number, error) {
	if r, c := m.Dims(); r != 3 || c != 3 {
		return quat.Number{}, fmt.Errorf("rotation matrix must be 3x3, got %dx%d", r, c)
	}
	if d := mat.Det(m); math.Abs(d-1) > 1e-9 {
		return quat.Number{}, fmt.Errorf("not a proper rotation: det=%v", d)
	}

	m00, m01, m02 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	m10, m11, m12 := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	m20, m21, m22 := m.At(2, 0), m.At(2, 1), m.At(2, 2)

	var q quat.Number
	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		s := 2 * math.Sqrt(trace+1)
		q = quat.Number{Real: s / 4, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: s / 4, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: s / 4, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: s / 4}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return quat.Scale(1/quat.Abs(q), q), nil
}

// MatrixFromQuaternion expands a unit quaternion to its rotation matrix.
func MatrixFromQuaternion(q quat.Number) *mat.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// rotationQuaternion returns the quaternion p of the proper rotation that
// re-expresses orientations under t. For a reflection (det M = −1) there is
// no quaternion of M itself; P = det(M)·M is a proper rotation and satisfies
// P·R·Pᵀ = M·R·Mᵀ for every R, so conjugating by P gives the same result.
func (t Transform) rotationQuaternion() quat.Number {
	m := t.Matrix()
	if d := mat.Det(m); d < 0 {
		m.Scale(-1, m)
	}
	p, err := QuaternionFromMatrix(m)
	if err != nil {
		// M is a signed permutation by construction.
		panic(fmt.Sprintf("frames: %s: %v", t, err))
	}
	return p
}

// conjugate returns p ⊗ q ⊗ p*.
func conjugate(p, q quat.Number) quat.Number {
	return quat.Mul(quat.Mul(p, q), quat.Conj(p))
}
