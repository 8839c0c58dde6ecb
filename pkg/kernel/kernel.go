// Package kernel defines the abstract geometry kernel interface.
// Implementations provide solid modeling and boolean operations behind this
// interface. The layout solver only needs to ask a solid two things: where
// it is, and how far a point is from its surface.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Distance is the signed distance from p to the surface, negative
	// inside the solid.
	Distance(p [3]float64) float64
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid
	Sphere(radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
}

// DefaultSamples is the per-axis lattice resolution Occupies uses when the
// caller passes zero.
const DefaultSamples = 3

// Occupies reports whether s reaches into the box [min, max]. Boxes whose
// bounds do not intersect the solid's bounding box are rejected outright;
// otherwise the box is sampled on a samples^3 lattice of cell centers and
// any sample inside the solid counts. Thin features between samples can be
// missed.
func Occupies(s Solid, min, max [3]float64, samples int) bool {
	if samples <= 0 {
		samples = DefaultSamples
	}

	smin, smax := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if max[i] <= smin[i] || smax[i] <= min[i] {
			return false
		}
	}

	var p [3]float64
	n := float64(samples)
	for i := 0; i < samples; i++ {
		p[0] = min[0] + (float64(i)+0.5)/n*(max[0]-min[0])
		for j := 0; j < samples; j++ {
			p[1] = min[1] + (float64(j)+0.5)/n*(max[1]-min[1])
			for k := 0; k < samples; k++ {
				p[2] = min[2] + (float64(k)+0.5)/n*(max[2]-min[2])
				if s.Distance(p) < 0 {
					return true
				}
			}
		}
	}
	return false
}
