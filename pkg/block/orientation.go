package block

import (
	"fmt"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Orientation is one of four quarter turns about the vertical (Y) axis.
// The four values form a cyclic group under Compose.
type Orientation uint8

const (
	O0 Orientation = iota
	O90
	O180
	O270
)

// All returns the four orientations in ascending order.
func All() []Orientation {
	return []Orientation{O0, O90, O180, O270}
}

// Degrees returns the rotation in degrees.
func (o Orientation) Degrees() int {
	return int(o%4) * 90
}

// Compose returns the orientation reached by applying o then other.
func (o Orientation) Compose(other Orientation) Orientation {
	return Orientation((o%4 + other%4) % 4)
}

// Inverse returns the orientation that composes with o to O0.
func (o Orientation) Inverse() Orientation {
	return Orientation((4 - o%4) % 4)
}

func (o Orientation) String() string {
	switch o {
	case O0:
		return "0"
	case O90:
		return "90"
	case O180:
		return "180"
	case O270:
		return "270"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

// OrientationFromDegrees converts 0/90/180/270 (or any multiple of 90,
// including negatives) into an Orientation.
func OrientationFromDegrees(deg int) (Orientation, error) {
	if deg%90 != 0 {
		return O0, fmt.Errorf("orientation %d is not a multiple of 90 degrees", deg)
	}
	q := (deg / 90) % 4
	if q < 0 {
		q += 4
	}
	return Orientation(q), nil
}

// ParseOrientation accepts a degree count such as "90" or "-90", with an
// optional "o" prefix ("o270").
func ParseOrientation(s string) (Orientation, error) {
	t := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "o")
	deg, err := strconv.Atoi(t)
	if err != nil {
		return O0, fmt.Errorf("invalid orientation %q", s)
	}
	return OrientationFromDegrees(deg)
}

// Rotate turns a local offset about the Y axis.
func (o Orientation) Rotate(v v3.Vec) v3.Vec {
	switch o % 4 {
	case O90:
		return v3.Vec{X: v.Z, Y: v.Y, Z: -v.X}
	case O180:
		return v3.Vec{X: -v.X, Y: v.Y, Z: -v.Z}
	case O270:
		return v3.Vec{X: -v.Z, Y: v.Y, Z: v.X}
	default:
		return v
	}
}
