package frames

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// SignedPermutation is the compact form of a 3×3 matrix with exactly one ±1
// entry per row and column. Row i of the output takes component Axis[i] of
// the input, multiplied by Sign[i].
type SignedPermutation struct {
	Axis [3]int
	Sign [3]float64
}

// IdentityPermutation leaves every component in place.
var IdentityPermutation = SignedPermutation{Axis: [3]int{0, 1, 2}, Sign: [3]float64{1, 1, 1}}

// Validate checks that Axis is a permutation of {0,1,2} and every sign is ±1.
func (p SignedPermutation) Validate() error {
	var seen [3]bool
	for i := 0; i < 3; i++ {
		a := p.Axis[i]
		if a < 0 || a > 2 {
			return fmt.Errorf("row %d: axis %d out of range", i, a)
		}
		if seen[a] {
			return fmt.Errorf("row %d: axis %d used twice", i, a)
		}
		seen[a] = true
		if p.Sign[i] != 1 && p.Sign[i] != -1 {
			return fmt.Errorf("row %d: sign %v is not ±1", i, p.Sign[i])
		}
	}
	return nil
}

// Apply permutes and negates the components of v. All entries are 0 or ±1,
// so no rounding occurs.
func (p SignedPermutation) Apply(v [3]float64) [3]float64 {
	return [3]float64{
		p.Sign[0] * v[p.Axis[0]],
		p.Sign[1] * v[p.Axis[1]],
		p.Sign[2] * v[p.Axis[2]],
	}
}

// ApplyVec is Apply for r3 vectors.
func (p SignedPermutation) ApplyVec(v r3.Vec) r3.Vec {
	out := p.Apply([3]float64{v.X, v.Y, v.Z})
	return r3.Vec{X: out[0], Y: out[1], Z: out[2]}
}

// Inverse returns the transpose, which for an orthonormal matrix is the
// inverse.
func (p SignedPermutation) Inverse() SignedPermutation {
	var inv SignedPermutation
	for i := 0; i < 3; i++ {
		inv.Axis[p.Axis[i]] = i
		inv.Sign[p.Axis[i]] = p.Sign[i]
	}
	return inv
}

// Then returns the permutation equivalent to applying p and then q.
func (p SignedPermutation) Then(q SignedPermutation) SignedPermutation {
	var out SignedPermutation
	for i := 0; i < 3; i++ {
		out.Axis[i] = p.Axis[q.Axis[i]]
		out.Sign[i] = q.Sign[i] * p.Sign[q.Axis[i]]
	}
	return out
}

// Rows expands the permutation to a dense row-major 3×3 matrix.
func (p SignedPermutation) Rows() [9]float64 {
	var m [9]float64
	for i := 0; i < 3; i++ {
		m[3*i+p.Axis[i]] = p.Sign[i]
	}
	return m
}

// Det is the sign of the permutation times the product of the signs.
func (p SignedPermutation) Det() float64 {
	parity := 1.0
	a := p.Axis
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if a[i] > a[j] {
				parity = -parity
			}
		}
	}
	return parity * p.Sign[0] * p.Sign[1] * p.Sign[2]
}

// permutationFromRows recovers the compact form from a dense matrix. It
// fails unless every row holds exactly one ±1 entry.
func permutationFromRows(m [9]float64) (SignedPermutation, error) {
	var p SignedPermutation
	for i := 0; i < 3; i++ {
		found := false
		for j := 0; j < 3; j++ {
			v := m[3*i+j]
			if v == 0 {
				continue
			}
			if found || (v != 1 && v != -1) {
				return SignedPermutation{}, fmt.Errorf("row %d is not a signed unit row: %v", i, m[3*i:3*i+3])
			}
			p.Axis[i] = j
			p.Sign[i] = v
			found = true
		}
		if !found {
			return SignedPermutation{}, fmt.Errorf("row %d is zero", i)
		}
	}
	return p, p.Validate()
}
