package testutil

import (
	"net/http"
	"testing"
)

func TestAssertStatusCode_Match(t *testing.T) {
	t.Parallel()
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
}

func TestNewCloud_Layout(t *testing.T) {
	b := NewCloud([][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}}, 4)
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if b.PointStep != 16 || b.Width != 2 || len(b.Data) != 32 {
		t.Fatalf("unexpected geometry: %s", b.Summary())
	}
	if f, ok := b.Field("f3"); !ok || f.Offset != 12 {
		t.Errorf("f3 field = %+v, %v", f, ok)
	}
	pts := Points(b)
	if pts[1][2] != 7 {
		t.Errorf("Points()[1][2] = %v, want 7", pts[1][2])
	}
}

func TestIndexedCloud(t *testing.T) {
	got := Indices(IndexedCloud(5, 3))
	for i, v := range got {
		if v != i {
			t.Errorf("index %d = %d", i, v)
		}
	}
}
