package frames

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// orthonormalTolerance bounds |M·Mᵀ − I| for IsOrthonormal. Signed
// permutations are exact, so anything non-zero indicates a bad matrix.
const orthonormalTolerance = 1e-12

// Transform maps vectors expressed in Source to the same physical vectors
// expressed in Destination. It is immutable; accessors return copies.
type Transform struct {
	src, dst Convention
	perm     SignedPermutation
}

// NewTransform derives the change of basis M = B_dstᵀ · B_src between two
// conventions.
func NewTransform(src, dst Convention) (Transform, error) {
	if err := src.Validate(); err != nil {
		return Transform{}, fmt.Errorf("source: %w", err)
	}
	if err := dst.Validate(); err != nil {
		return Transform{}, fmt.Errorf("destination: %w", err)
	}

	sb, db := src.basis(), dst.basis()
	var rows [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rows[3*i+j] = r3.Dot(db[i], sb[j])
		}
	}
	perm, err := permutationFromRows(rows)
	if err != nil {
		return Transform{}, fmt.Errorf("%s -> %s: %w", src, dst, err)
	}
	return Transform{src: src, dst: dst, perm: perm}, nil
}

// MustTransform is NewTransform for the fixed conventions of this package.
func MustTransform(src, dst Convention) Transform {
	t, err := NewTransform(src, dst)
	if err != nil {
		panic(err)
	}
	return t
}

// Source convention of the input vectors.
func (t Transform) Source() Convention { return t.src }

// Destination convention of the output vectors.
func (t Transform) Destination() Convention { return t.dst }

// Permutation returns the compact signed-permutation form.
func (t Transform) Permutation() SignedPermutation { return t.perm }

// Matrix returns a fresh dense copy of M.
func (t Transform) Matrix() *mat.Dense {
	rows := t.perm.Rows()
	return mat.NewDense(3, 3, rows[:])
}

// Det returns det(M): −1 across a handedness flip, +1 otherwise.
func (t Transform) Det() float64 {
	return mat.Det(t.Matrix())
}

// FlipsHandedness reports whether the transform is a reflection.
func (t Transform) FlipsHandedness() bool {
	return t.src.Handedness() != t.dst.Handedness()
}

// IsOrthonormal checks |det| = 1 and M·Mᵀ = I.
func (t Transform) IsOrthonormal() bool {
	m := t.Matrix()
	if math.Abs(math.Abs(mat.Det(m))-1) > orthonormalTolerance {
		return false
	}
	var mmt mat.Dense
	mmt.Mul(m, m.T())
	ident := mat.NewDiagDense(3, []float64{1, 1, 1})
	return mat.EqualApprox(&mmt, ident, orthonormalTolerance)
}

// Apply maps a vector from Source to Destination.
func (t Transform) Apply(v r3.Vec) r3.Vec {
	return t.perm.ApplyVec(v)
}

// Inverse maps Destination back to Source.
func (t Transform) Inverse() Transform {
	return Transform{src: t.dst, dst: t.src, perm: t.perm.Inverse()}
}

// Then composes t with next. next must start where t ends.
func (t Transform) Then(next Transform) (Transform, error) {
	if !t.dst.Equal(next.src) {
		return Transform{}, fmt.Errorf("%w: %s -> %s cannot follow %s -> %s",
			ErrConventionMismatch, next.src, next.dst, t.src, t.dst)
	}
	return Transform{src: t.src, dst: next.dst, perm: t.perm.Then(next.perm)}, nil
}

// rotateCovariance re-expresses a row-major 3×3 covariance as M·C·Mᵀ.
func (t Transform) rotateCovariance(c Covariance) Covariance {
	if c.Unknown() {
		return c
	}
	m := t.Matrix()
	cm := mat.NewDense(3, 3, c[:])
	var tmp, out mat.Dense
	tmp.Mul(m, cm)
	out.Mul(&tmp, m.T())
	var res Covariance
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			res[3*i+j] = out.At(i, j)
		}
	}
	return res
}

func (t Transform) String() string {
	return fmt.Sprintf("%s->%s", t.src, t.dst)
}

// The transforms used by Chain.
var (
	ProducerToNeutral  = MustTransform(Producer, Neutral)
	NeutralToConsumerA = MustTransform(Neutral, ConsumerA)
	NeutralToConsumerB = MustTransform(Neutral, ConsumerB)
)
