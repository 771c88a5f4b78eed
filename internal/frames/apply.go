package frames

import (
	"fmt"
)

// Apply re-expresses rec in t's destination convention and returns a new
// record; rec is not modified.
//
// Angular velocity and linear acceleration are each mapped by M. The
// orientation, when present, is conjugated by the quaternion of the proper
// rotation equivalent to M. fromLeftHanded declares that the source
// convention is left-handed; it must agree with t, since across a
// handedness flip M is a reflection and the orientation needs the
// reflection-compensated rotation rather than a component remap.
func Apply(rec InertialRecord, t Transform, fromLeftHanded bool) (InertialRecord, error) {
	if !rec.Convention.Equal(t.Source()) {
		return InertialRecord{}, fmt.Errorf("%w: record in %s, transform %s",
			ErrConventionMismatch, rec.Convention, t)
	}
	srcLeft := t.Source().Handedness() == LeftHanded
	if fromLeftHanded != srcLeft {
		return InertialRecord{}, fmt.Errorf("%w: transform %s source is %s but fromLeftHanded=%t",
			ErrConventionMismatch, t, t.Source().Handedness(), fromLeftHanded)
	}

	out := InertialRecord{
		Header:             rec.Header,
		Convention:         t.Destination(),
		AngularVelocity:    t.Apply(rec.AngularVelocity),
		LinearAcceleration: t.Apply(rec.LinearAcceleration),

		AngularVelocityCovariance:    t.rotateCovariance(rec.AngularVelocityCovariance),
		LinearAccelerationCovariance: t.rotateCovariance(rec.LinearAccelerationCovariance),
		OrientationCovariance:        t.rotateCovariance(rec.OrientationCovariance),
	}
	if rec.Orientation != nil {
		q := conjugate(t.rotationQuaternion(), *rec.Orientation)
		out.Orientation = &q
	}
	return out, nil
}
