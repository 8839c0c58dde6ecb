// Package sdfx implements kernel.Kernel on top of the signed distance
// functions in github.com/deadsy/sdfx.
//
// Every primitive is placed so that it lines up with the solver's unit
// cells: boxes grow from their minimum corner, cylinders stand on the XZ
// plane. A keep-out written as (translate (box 1 2 1) (vec3 3 0 3)) covers
// cells (3,0,3) and (3,1,3) exactly.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/bild/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var _ kernel.Kernel = (*Kernel)(nil)

// Kernel builds solids as sdf.SDF3 trees. It is stateless and safe for
// concurrent use.
type Kernel struct{}

// New returns a Kernel.
func New() *Kernel {
	return &Kernel{}
}

type solid struct {
	sdf sdf.SDF3
}

func (s solid) BoundingBox() (min, max [3]float64) {
	bb := s.sdf.BoundingBox()
	return toArray(bb.Min), toArray(bb.Max)
}

func (s solid) Distance(p [3]float64) float64 {
	return s.sdf.Evaluate(v3.Vec{X: p[0], Y: p[1], Z: p[2]})
}

func toArray(v v3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func sdfOf(s kernel.Solid) sdf.SDF3 {
	return s.(solid).sdf
}

// must turns an sdfx constructor error into a panic. The DSL checks
// dimensions before calling in, so an error here is a programming mistake.
func must(s sdf.SDF3, err error) sdf.SDF3 {
	if err != nil {
		panic(fmt.Sprintf("sdfx: %v", err))
	}
	return s
}

func transform(s sdf.SDF3, m sdf.M44) kernel.Solid {
	return solid{sdf: sdf.Transform3D(s, m)}
}

// Box spans [0,x]×[0,y]×[0,z].
func (k *Kernel) Box(x, y, z float64) kernel.Solid {
	s := must(sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0))
	return transform(s, sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2}))
}

// Cylinder has its axis on Y, spanning [0,height], centred on X=Z=0.
// segments is ignored; the distance field is exact.
func (k *Kernel) Cylinder(height, radius float64, _ int) kernel.Solid {
	s := must(sdf.Cylinder3D(height, radius, 0))
	upright := sdf.Translate3d(v3.Vec{Y: height / 2}).Mul(sdf.RotateX(-math.Pi / 2))
	return transform(s, upright)
}

// Sphere is centred on the origin.
func (k *Kernel) Sphere(radius float64) kernel.Solid {
	return solid{sdf: must(sdf.Sphere3D(radius))}
}

func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return solid{sdf: sdf.Union3D(sdfOf(a), sdfOf(b))}
}

// Difference is a minus b.
func (k *Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	return solid{sdf: sdf.Difference3D(sdfOf(a), sdfOf(b))}
}

func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return solid{sdf: sdf.Intersect3D(sdfOf(a), sdfOf(b))}
}

func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return transform(sdfOf(s), sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z}))
}

// Rotate applies X, then Y, then Z rotations given in degrees.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	m := sdf.RotateZ(rad(z)).Mul(sdf.RotateY(rad(y))).Mul(sdf.RotateX(rad(x)))
	return transform(sdfOf(s), m)
}
