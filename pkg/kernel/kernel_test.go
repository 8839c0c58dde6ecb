package kernel

import (
	"math"
	"testing"
)

// --- Stub kernel ---

// stubSolid is an axis-aligned box with an exact-enough distance function.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

// Distance is negative inside the box. Outside it returns the largest
// per-axis gap, which has the right sign.
func (s *stubSolid) Distance(p [3]float64) float64 {
	d := math.Inf(-1)
	for i := 0; i < 3; i++ {
		d = math.Max(d, math.Max(s.minBB[i]-p[i], p[i]-s.maxBB[i]))
	}
	return d
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. Only Box and Translate are faithful.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) Solid {
	return &stubSolid{
		minBB: [3]float64{0, 0, 0},
		maxBB: [3]float64{x, y, z},
	}
}

func (k *stubKernel) Cylinder(height, radius float64, _ int) Solid {
	return &stubSolid{
		minBB: [3]float64{-radius, -radius, 0},
		maxBB: [3]float64{radius, radius, height},
	}
}

func (k *stubKernel) Sphere(radius float64) Solid {
	return &stubSolid{
		minBB: [3]float64{-radius, -radius, -radius},
		maxBB: [3]float64{radius, radius, radius},
	}
}

func (k *stubKernel) Union(a, _ Solid) Solid        { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid   { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid { return a }

func (k *stubKernel) Translate(s Solid, x, y, z float64) Solid {
	b := s.(*stubSolid)
	return &stubSolid{
		minBB: [3]float64{b.minBB[0] + x, b.minBB[1] + y, b.minBB[2] + z},
		maxBB: [3]float64{b.maxBB[0] + x, b.maxBB[1] + y, b.maxBB[2] + z},
	}
}

func (k *stubKernel) Rotate(s Solid, _, _, _ float64) Solid { return s }

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Box(10, 20, 30)
	min, max := s.BoundingBox()
	if min != [3]float64{0, 0, 0} {
		t.Errorf("Box min = %v, want [0 0 0]", min)
	}
	if max != [3]float64{10, 20, 30} {
		t.Errorf("Box max = %v, want [10 20 30]", max)
	}
}

// --- Occupies ---

func TestOccupies(t *testing.T) {
	var k Kernel = &stubKernel{}
	pillar := k.Translate(k.Box(1, 2, 1), 1, 0, 1)

	tests := []struct {
		name     string
		min, max [3]float64
		want     bool
	}{
		{"same cell", [3]float64{1, 0, 1}, [3]float64{2, 1, 2}, true},
		{"upper cell", [3]float64{1, 1, 1}, [3]float64{2, 2, 2}, true},
		{"above pillar", [3]float64{1, 2, 1}, [3]float64{2, 3, 2}, false},
		{"face neighbor", [3]float64{0, 0, 1}, [3]float64{1, 1, 2}, false},
		{"far away", [3]float64{5, 5, 5}, [3]float64{6, 6, 6}, false},
		{"enclosing", [3]float64{0, 0, 0}, [3]float64{3, 3, 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Occupies(pillar, tt.min, tt.max, 0); got != tt.want {
				t.Errorf("Occupies(%v, %v) = %v, want %v", tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestOccupiesSampleResolution(t *testing.T) {
	var k Kernel = &stubKernel{}
	// A thin slab in the middle of a unit cell, between the samples of a
	// 2x2x2 lattice (0.25, 0.75) but on the single sample of a 1x1x1 one.
	slab := k.Translate(k.Box(1, 0.1, 1), 0, 0.45, 0)

	if Occupies(slab, [3]float64{0, 0, 0}, [3]float64{1, 1, 1}, 2) {
		t.Error("2-sample lattice should miss a slab between its samples")
	}
	if !Occupies(slab, [3]float64{0, 0, 0}, [3]float64{1, 1, 1}, 1) {
		t.Error("1-sample lattice should hit the slab through the cell center")
	}
}
