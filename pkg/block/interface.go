package block

import (
	"fmt"
	"strings"
)

// Interface is the kind of attachment surface a face exposes.
type Interface int

const (
	ActiveSurface      Interface = iota // active silicon surface
	PassiveSurface                      // silicon backside
	MetalPad                            // electrical pad
	SolderBall                          // solder ball
	WireBondPad                         // wire bond pad
	ThermalPad                          // heat conduction pad
	MountingSurface                     // mechanical mount
	HeatSinkInterface                   // heat sink contact
	UnderfillInterface                  // underfill
	PCBTrace                            // board trace
	Via                                 // through-substrate via
	AirGap                              // air gap, never connects
	Stud                                // brick stud
	Tube                                // brick tube
)

var interfaceNames = map[Interface]string{
	ActiveSurface:      "active-surface",
	PassiveSurface:     "passive-surface",
	MetalPad:           "metal-pad",
	SolderBall:         "solder-ball",
	WireBondPad:        "wire-bond-pad",
	ThermalPad:         "thermal-pad",
	MountingSurface:    "mounting-surface",
	HeatSinkInterface:  "heat-sink",
	UnderfillInterface: "underfill",
	PCBTrace:           "pcb-trace",
	Via:                "via",
	AirGap:             "air-gap",
	Stud:               "stud",
	Tube:               "tube",
}

func (i Interface) String() string {
	if name, ok := interfaceNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Interface(%d)", int(i))
}

// ParseInterface resolves an interface name. Underscores and hyphens are
// interchangeable and matching is case-insensitive.
func ParseInterface(name string) (Interface, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for i, n := range interfaceNames {
		if n == norm {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown interface %q", name)
}

// Inverse returns the interface's natural counterpart, if it has one.
func (i Interface) Inverse() (Interface, bool) {
	switch i {
	case ActiveSurface, PassiveSurface:
		return ThermalPad, true
	case MetalPad:
		return SolderBall, true
	case SolderBall, WireBondPad:
		return MetalPad, true
	case ThermalPad:
		return HeatSinkInterface, true
	case HeatSinkInterface:
		return ThermalPad, true
	case MountingSurface:
		return MountingSurface, true
	case Stud:
		return Tube, true
	case Tube:
		return Stud, true
	}
	return 0, false
}

// Connector names the physical kind of a connection between two interfaces.
type Connector int

const (
	ThermalConduction Connector = iota
	ElectricalConnection
	MechanicalBond
	ThermalInterfaceBond
	DieAttach
	PackageConnection
	HeatSinkAttachment
)

func (c Connector) String() string {
	switch c {
	case ThermalConduction:
		return "thermal-conduction"
	case ElectricalConnection:
		return "electrical"
	case MechanicalBond:
		return "mechanical"
	case ThermalInterfaceBond:
		return "thermal-interface"
	case DieAttach:
		return "die-attach"
	case PackageConnection:
		return "package"
	case HeatSinkAttachment:
		return "heat-sink-attachment"
	default:
		return fmt.Sprintf("Connector(%d)", int(c))
	}
}

// OrientedInterface is an interface together with its rotation.
type OrientedInterface struct {
	Interface   Interface   `json:"interface"`
	Orientation Orientation `json:"orientation"`
}

func (oi OrientedInterface) String() string {
	return fmt.Sprintf("%s@%s", oi.Interface, oi.Orientation)
}

// Rotated returns oi turned by o.
func (oi OrientedInterface) Rotated(o Orientation) OrientedInterface {
	return OrientedInterface{Interface: oi.Interface, Orientation: oi.Orientation.Compose(o)}
}

// Connection is the result of joining two oriented interfaces.
type Connection struct {
	Left      OrientedInterface
	Connector Connector
	Right     OrientedInterface
}

// Connect applies the connection rule table to the ordered pair (a, b).
// Some rules are one-directional (wire bond onto a metal pad, active
// surface onto a thermal pad); use Compatible for the symmetric question.
func Connect(a, b OrientedInterface) (Connection, bool) {
	conn := func(c Connector) (Connection, bool) {
		return Connection{Left: a, Connector: c, Right: b}, true
	}

	switch {
	case pair(a, b, PassiveSurface, ThermalPad):
		return conn(ThermalConduction)
	case pair(a, b, MetalPad, SolderBall):
		return conn(ElectricalConnection)
	case a.Interface == WireBondPad && b.Interface == MetalPad:
		return conn(ElectricalConnection)
	case pair(a, b, ThermalPad, HeatSinkInterface):
		return conn(ThermalInterfaceBond)
	case a.Interface == MountingSurface && b.Interface == MountingSurface:
		return conn(MechanicalBond)
	case a.Interface == ActiveSurface && b.Interface == ThermalPad:
		return conn(DieAttach)
	case pair(a, b, SolderBall, PCBTrace):
		return conn(PackageConnection)
	case pair(a, b, Via, PCBTrace):
		return conn(ElectricalConnection)
	case pair(a, b, Stud, Tube):
		// Studs seat only when the two rotations cancel out.
		if a.Orientation.Compose(b.Orientation) == O0 {
			return conn(MechanicalBond)
		}
	}
	return Connection{}, false
}

// Compatible reports whether a and b connect in either order.
func Compatible(a, b OrientedInterface) bool {
	if _, ok := Connect(a, b); ok {
		return true
	}
	_, ok := Connect(b, a)
	return ok
}

func pair(a, b OrientedInterface, x, y Interface) bool {
	return (a.Interface == x && b.Interface == y) || (a.Interface == y && b.Interface == x)
}
