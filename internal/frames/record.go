package frames

import (
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Header carries the ordering and provenance of a record.
type Header struct {
	Seq     uint64
	Stamp   time.Time
	FrameID string
}

// Covariance is a row-major 3×3 covariance matrix. A first element of −1
// marks the quantity as unknown, following sensor_msgs/Imu.
type Covariance [9]float64

// UnknownCovariance marks a quantity whose covariance is not reported.
var UnknownCovariance = Covariance{-1}

// Unknown reports whether the covariance carries the "not reported" marker.
func (c Covariance) Unknown() bool { return c[0] == -1 }

// InertialRecord is one IMU sample. All vector, orientation and covariance
// fields are expressed in Convention.
type InertialRecord struct {
	Header     Header
	Convention Convention

	AngularVelocity    r3.Vec
	LinearAcceleration r3.Vec
	// Orientation is nil when the producer does not estimate it.
	Orientation *quat.Number

	OrientationCovariance        Covariance
	AngularVelocityCovariance    Covariance
	LinearAccelerationCovariance Covariance
}

// HasOrientation reports whether the record carries an orientation estimate.
func (r InertialRecord) HasOrientation() bool { return r.Orientation != nil }
