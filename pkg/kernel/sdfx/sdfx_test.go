package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/bild/pkg/kernel"
)

const tol = 1e-6

func TestBoxSitsOnOrigin(t *testing.T) {
	k := New()
	box := k.Box(4, 2, 1)
	min, max := box.BoundingBox()

	expectMin := [3]float64{0, 0, 0}
	expectMax := [3]float64{4, 2, 1}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestBoxDistance(t *testing.T) {
	k := New()
	box := k.Box(2, 2, 2)

	tests := []struct {
		name string
		p    [3]float64
		want float64
	}{
		{"center", [3]float64{1, 1, 1}, -1},
		{"surface", [3]float64{2, 1, 1}, 0},
		{"outside", [3]float64{3, 1, 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Distance(tt.p); math.Abs(got-tt.want) > tol {
				t.Errorf("Distance(%v) = %f, want %f", tt.p, got, tt.want)
			}
		})
	}
}

func TestCylinderStandsOnY(t *testing.T) {
	k := New()
	cyl := k.Cylinder(3, 0.5, 32)
	min, max := cyl.BoundingBox()

	if math.Abs(min[1]) > tol || math.Abs(max[1]-3) > tol {
		t.Errorf("Y span = [%f, %f], want [0, 3]", min[1], max[1])
	}
	if math.Abs((max[0]-min[0])-1) > tol || math.Abs((max[2]-min[2])-1) > tol {
		t.Errorf("XZ footprint = %fx%f, want 1x1", max[0]-min[0], max[2]-min[2])
	}
	if d := cyl.Distance([3]float64{0, 2.5, 0}); d >= 0 {
		t.Errorf("point on the axis should be inside, distance %f", d)
	}
	if d := cyl.Distance([3]float64{0, 3.5, 0}); d <= 0 {
		t.Errorf("point above the cap should be outside, distance %f", d)
	}
}

func TestSphere(t *testing.T) {
	k := New()
	s := k.Sphere(2)
	if d := s.Distance([3]float64{0, 0, 0}); math.Abs(d+2) > tol {
		t.Errorf("center distance = %f, want -2", d)
	}
	if d := s.Distance([3]float64{0, 3, 0}); math.Abs(d-1) > tol {
		t.Errorf("distance at (0,3,0) = %f, want 1", d)
	}
}

func TestDifference(t *testing.T) {
	k := New()
	block := k.Box(3, 1, 3)
	hole := k.Translate(k.Box(1, 1, 1), 1, 0, 1)
	ring := k.Difference(block, hole)

	if d := ring.Distance([3]float64{1.5, 0.5, 1.5}); d <= 0 {
		t.Errorf("center of the hole should be outside, distance %f", d)
	}
	if d := ring.Distance([3]float64{0.5, 0.5, 0.5}); d >= 0 {
		t.Errorf("corner cell should be inside, distance %f", d)
	}
}

func TestUnionAndIntersection(t *testing.T) {
	k := New()
	a := k.Box(2, 1, 1)
	b := k.Translate(k.Box(2, 1, 1), 1, 0, 0)

	u := k.Union(a, b)
	if d := u.Distance([3]float64{2.5, 0.5, 0.5}); d >= 0 {
		t.Errorf("union should cover b, distance %f", d)
	}

	i := k.Intersection(a, b)
	if d := i.Distance([3]float64{0.5, 0.5, 0.5}); d <= 0 {
		t.Errorf("intersection should exclude a-only region, distance %f", d)
	}
	if d := i.Distance([3]float64{1.5, 0.5, 0.5}); d >= 0 {
		t.Errorf("intersection should keep the overlap, distance %f", d)
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	box := k.Box(1, 1, 1)
	translated := k.Translate(box, 10, 20, 30)

	min, max := translated.BoundingBox()
	expectMin := [3]float64{10, 20, 30}
	expectMax := [3]float64{11, 21, 31}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestRotate(t *testing.T) {
	k := New()
	box := k.Box(4, 1, 1)

	// A long box along X rotated 90 degrees around Y should extend along Z instead.
	rotated := k.Rotate(box, 0, 90, 0)
	min, max := rotated.BoundingBox()

	xExtent := max[0] - min[0]
	zExtent := max[2] - min[2]

	const rtol = 1e-3
	if math.Abs(xExtent-1) > rtol {
		t.Errorf("rotated X extent = %f, expected ~1", xExtent)
	}
	if math.Abs(zExtent-4) > rtol {
		t.Errorf("rotated Z extent = %f, expected ~4", zExtent)
	}
}

func TestOccupiesWithSdfxSolid(t *testing.T) {
	k := New()
	pillar := k.Translate(k.Box(1, 2, 1), 1, 0, 1)

	if !kernel.Occupies(pillar, [3]float64{1, 1, 1}, [3]float64{2, 2, 2}, 0) {
		t.Error("pillar should occupy cell (1,1,1)")
	}
	if kernel.Occupies(pillar, [3]float64{2, 0, 1}, [3]float64{3, 1, 2}, 0) {
		t.Error("pillar should not occupy its face neighbor (2,0,1)")
	}
}
