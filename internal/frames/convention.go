package frames

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Direction is a physical direction relative to the vehicle body.
type Direction int

const (
	Forward Direction = iota + 1
	Back
	Left
	Right
	Up
	Down
)

// String returns the lower-case name of the direction.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Back:
		return "back"
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// unit returns the direction in a fixed Forward/Left/Up reference basis.
func (d Direction) unit() r3.Vec {
	switch d {
	case Forward:
		return r3.Vec{X: 1}
	case Back:
		return r3.Vec{X: -1}
	case Left:
		return r3.Vec{Y: 1}
	case Right:
		return r3.Vec{Y: -1}
	case Up:
		return r3.Vec{Z: 1}
	case Down:
		return r3.Vec{Z: -1}
	}
	return r3.Vec{}
}

// Handedness of an axis convention.
type Handedness int

const (
	RightHanded Handedness = 1
	LeftHanded  Handedness = -1
)

func (h Handedness) String() string {
	if h == LeftHanded {
		return "left-handed"
	}
	return "right-handed"
}

// Convention assigns a physical direction to each of +x, +y and +z.
type Convention struct {
	Name    string
	X, Y, Z Direction
}

// The conventions used on the ingestion path.
var (
	// Producer is the simulator convention (x forward, y right, z up).
	Producer = Convention{Name: "producer", X: Forward, Y: Right, Z: Up}
	// Neutral is the ROS body convention (x forward, y left, z up).
	Neutral = Convention{Name: "neutral", X: Forward, Y: Left, Z: Up}
	// ConsumerA is the camera-style convention expected by visual-inertial
	// odometry (x right, y down, z forward).
	ConsumerA = Convention{Name: "consumer_a", X: Right, Y: Down, Z: Forward}
	// ConsumerB is the convention expected by lidar odometry and mapping
	// (x left, y up, z forward).
	ConsumerB = Convention{Name: "consumer_b", X: Left, Y: Up, Z: Forward}
)

var knownConventions = []Convention{Producer, Neutral, ConsumerA, ConsumerB}

// ConventionByName looks up one of the known conventions.
func ConventionByName(name string) (Convention, bool) {
	for _, c := range knownConventions {
		if c.Name == name {
			return c, true
		}
	}
	return Convention{}, false
}

func (c Convention) String() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("(%s,%s,%s)", c.X, c.Y, c.Z)
}

// Equal compares the axis assignment, ignoring the name.
func (c Convention) Equal(o Convention) bool {
	return c.X == o.X && c.Y == o.Y && c.Z == o.Z
}

// Validate checks that the three axes span space, i.e. no two axes share a
// physical line.
func (c Convention) Validate() error {
	if c.X == 0 || c.Y == 0 || c.Z == 0 {
		return fmt.Errorf("convention %s: unset axis", c)
	}
	if c.det() == 0 {
		return fmt.Errorf("convention %s: axes are not independent", c)
	}
	return nil
}

// Handedness is derived from the determinant of the basis.
func (c Convention) Handedness() Handedness {
	if c.det() < 0 {
		return LeftHanded
	}
	return RightHanded
}

// basis returns the columns of the convention's basis in the reference frame.
func (c Convention) basis() [3]r3.Vec {
	return [3]r3.Vec{c.X.unit(), c.Y.unit(), c.Z.unit()}
}

func (c Convention) det() float64 {
	b := c.basis()
	return r3.Dot(b[0], r3.Cross(b[1], b[2]))
}
