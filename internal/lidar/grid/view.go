package grid

import "fmt"

// View is a strided 3-D view over a flat sequence of float32 fields:
// element (i, j, k) lives at Offset + i*Strides[0] + j*Strides[1] +
// k*Strides[2]. Axis 0 and 1 address points, axis 2 the fields of a point.
// Views never copy; Flatten materialises one.
type View struct {
	Offset  int
	Shape   [3]int
	Strides [3]int
}

// NewView returns the contiguous row-major view of rows × cols points of
// pointLen fields each.
func NewView(rows, cols, pointLen int) View {
	return View{
		Shape:   [3]int{rows, cols, pointLen},
		Strides: [3]int{cols * pointLen, pointLen, 1},
	}
}

// Rows is the extent of axis 0.
func (v View) Rows() int { return v.Shape[0] }

// Cols is the extent of axis 1.
func (v View) Cols() int { return v.Shape[1] }

// Len is the number of points addressed by the view.
func (v View) Len() int { return v.Shape[0] * v.Shape[1] }

// Transpose swaps axes 0 and 1.
func (v View) Transpose() View {
	v.Shape[0], v.Shape[1] = v.Shape[1], v.Shape[0]
	v.Strides[0], v.Strides[1] = v.Strides[1], v.Strides[0]
	return v
}

// Slice keeps every rowStep-th row and every colStep-th column, starting at
// index 0 of each.
func (v View) Slice(rowStep, colStep int) (View, error) {
	if rowStep <= 0 || colStep <= 0 {
		return View{}, fmt.Errorf("%w: slice steps must be positive, got %d and %d",
			ErrInvalidConfiguration, rowStep, colStep)
	}
	v.Shape[0] = ceilDiv(v.Shape[0], rowStep)
	v.Shape[1] = ceilDiv(v.Shape[1], colStep)
	v.Strides[0] *= rowStep
	v.Strides[1] *= colStep
	return v, nil
}

// PointOffset returns the element offset of the first field of point (i, j).
func (v View) PointOffset(i, j int) int {
	return v.Offset + i*v.Strides[0] + j*v.Strides[1]
}

// Flatten copies the addressed points, in row-major order, out of src.
// src holds elemSize bytes per element; the fields of one point must be
// contiguous (Strides[2] == 1).
func (v View) Flatten(src []byte, elemSize int) ([]byte, error) {
	if v.Strides[2] != 1 {
		return nil, fmt.Errorf("point fields are not contiguous (stride %d)", v.Strides[2])
	}
	pointBytes := v.Shape[2] * elemSize
	out := make([]byte, 0, v.Len()*pointBytes)
	for i := 0; i < v.Shape[0]; i++ {
		for j := 0; j < v.Shape[1]; j++ {
			start := v.PointOffset(i, j) * elemSize
			end := start + pointBytes
			if start < 0 || end > len(src) {
				return nil, fmt.Errorf("point (%d,%d) at bytes [%d,%d) outside buffer of %d", i, j, start, end, len(src))
			}
			out = append(out, src[start:end]...)
		}
	}
	return out, nil
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
