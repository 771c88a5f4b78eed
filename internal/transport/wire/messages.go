package wire

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/reframe/internal/frames"
	"github.com/banshee-data/reframe/internal/lidar/cloud"
)

func appendHeader(b []byte, seq uint64, stamp time.Time, frameID string) []byte {
	b = appendVarint(b, 1, seq)
	if !stamp.IsZero() {
		b = appendSfixed64(b, 2, stamp.UnixNano())
	}
	if frameID != "" {
		b = appendString(b, 3, frameID)
	}
	return b
}

func decodeHeader(m []byte) (seq uint64, stamp time.Time, frameID string, err error) {
	err = walk(m, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(num, typ, b)
			seq = v
			return n, err
		case 2:
			v, n, err := consumeFixed64(num, typ, b)
			stamp = time.Unix(0, int64(v))
			return n, err
		case 3:
			s, n, err := consumeString(typ, b)
			frameID = s
			return n, err
		}
		return skip(num, typ, b)
	})
	return
}

func appendVec(b []byte, v r3.Vec) []byte {
	b = appendDouble(b, 1, v.X)
	b = appendDouble(b, 2, v.Y)
	return appendDouble(b, 3, v.Z)
}

func decodeVec(m []byte) (r3.Vec, error) {
	var v r3.Vec
	err := walk(m, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var dst *float64
		switch num {
		case 1:
			dst = &v.X
		case 2:
			dst = &v.Y
		case 3:
			dst = &v.Z
		default:
			return skip(num, typ, b)
		}
		f, n, err := consumeDouble(num, typ, b)
		*dst = f
		return n, err
	})
	return v, err
}

func appendQuat(b []byte, q quat.Number) []byte {
	b = appendDouble(b, 1, q.Real)
	b = appendDouble(b, 2, q.Imag)
	b = appendDouble(b, 3, q.Jmag)
	return appendDouble(b, 4, q.Kmag)
}

func decodeQuat(m []byte) (quat.Number, error) {
	var q quat.Number
	err := walk(m, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var dst *float64
		switch num {
		case 1:
			dst = &q.Real
		case 2:
			dst = &q.Imag
		case 3:
			dst = &q.Jmag
		case 4:
			dst = &q.Kmag
		default:
			return skip(num, typ, b)
		}
		f, n, err := consumeDouble(num, typ, b)
		*dst = f
		return n, err
	})
	return q, err
}

func appendInertial(b []byte, r *frames.InertialRecord) []byte {
	b = appendMessage(b, 1, appendHeader(nil, r.Header.Seq, r.Header.Stamp, r.Header.FrameID))
	b = appendString(b, 2, r.Convention.Name)
	b = appendMessage(b, 3, appendVec(nil, r.AngularVelocity))
	b = appendMessage(b, 4, appendVec(nil, r.LinearAcceleration))
	if r.Orientation != nil {
		b = appendMessage(b, 5, appendQuat(nil, *r.Orientation))
	}
	b = appendPackedDoubles(b, 6, r.OrientationCovariance[:])
	b = appendPackedDoubles(b, 7, r.AngularVelocityCovariance[:])
	return appendPackedDoubles(b, 8, r.LinearAccelerationCovariance[:])
}

func decodeInertial(m []byte) (frames.InertialRecord, error) {
	var r frames.InertialRecord
	// Absent covariances are unknown, not zero.
	r.OrientationCovariance = frames.UnknownCovariance
	r.AngularVelocityCovariance = frames.UnknownCovariance
	r.LinearAccelerationCovariance = frames.UnknownCovariance

	var convention string
	err := walk(m, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			sub, n, err := consumeMessage(typ, b)
			if err != nil {
				return n, err
			}
			r.Header.Seq, r.Header.Stamp, r.Header.FrameID, err = decodeHeader(sub)
			return n, err
		case 2:
			s, n, err := consumeString(typ, b)
			convention = s
			return n, err
		case 3, 4:
			sub, n, err := consumeMessage(typ, b)
			if err != nil {
				return n, err
			}
			v, err := decodeVec(sub)
			if num == 3 {
				r.AngularVelocity = v
			} else {
				r.LinearAcceleration = v
			}
			return n, err
		case 5:
			sub, n, err := consumeMessage(typ, b)
			if err != nil {
				return n, err
			}
			q, err := decodeQuat(sub)
			r.Orientation = &q
			return n, err
		case 6:
			return consumePackedDoubles(num, typ, b, r.OrientationCovariance[:])
		case 7:
			return consumePackedDoubles(num, typ, b, r.AngularVelocityCovariance[:])
		case 8:
			return consumePackedDoubles(num, typ, b, r.LinearAccelerationCovariance[:])
		}
		return skip(num, typ, b)
	})
	if err != nil {
		return frames.InertialRecord{}, err
	}
	conv, ok := frames.ConventionByName(convention)
	if !ok {
		return frames.InertialRecord{}, fmt.Errorf("%w: unknown convention %q", ErrDecode, convention)
	}
	r.Convention = conv
	return r, nil
}

func appendField(b []byte, f cloud.Field) []byte {
	b = appendString(b, 1, f.Name)
	b = appendVarint(b, 2, uint64(f.Offset))
	b = appendVarint(b, 3, uint64(f.Datatype))
	return appendVarint(b, 4, uint64(f.Count))
}

func decodeField(m []byte) (cloud.Field, error) {
	var f cloud.Field
	err := walk(m, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(typ, b)
			f.Name = s
			return n, err
		case 2:
			v, n, err := consumeUint32(num, typ, b)
			f.Offset = v
			return n, err
		case 3:
			v, n, err := consumeUint32(num, typ, b)
			if err == nil && v > 0xff {
				err = fmt.Errorf("%w: datatype %d out of range", ErrDecode, v)
			}
			f.Datatype = uint8(v)
			return n, err
		case 4:
			v, n, err := consumeUint32(num, typ, b)
			f.Count = v
			return n, err
		}
		return skip(num, typ, b)
	})
	return f, err
}

func appendCloud(b []byte, pc *cloud.PointBuffer) []byte {
	b = appendMessage(b, 1, appendHeader(nil, pc.Header.Seq, pc.Header.Stamp, pc.Header.FrameID))
	b = appendVarint(b, 2, uint64(pc.Height))
	b = appendVarint(b, 3, uint64(pc.Width))
	b = appendVarint(b, 4, uint64(pc.PointStep))
	b = appendVarint(b, 5, uint64(pc.RowStep))
	for _, f := range pc.Fields {
		b = appendMessage(b, 6, appendField(nil, f))
	}
	b = appendBool(b, 7, pc.IsBigEndian)
	b = appendBytes(b, 8, pc.Data)
	return appendBool(b, 9, pc.IsDense)
}

func decodeCloud(m []byte) (cloud.PointBuffer, error) {
	var pc cloud.PointBuffer
	err := walk(m, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			sub, n, err := consumeMessage(typ, b)
			if err != nil {
				return n, err
			}
			pc.Header.Seq, pc.Header.Stamp, pc.Header.FrameID, err = decodeHeader(sub)
			return n, err
		case 2, 3, 4, 5:
			v, n, err := consumeUint32(num, typ, b)
			switch num {
			case 2:
				pc.Height = v
			case 3:
				pc.Width = v
			case 4:
				pc.PointStep = v
			case 5:
				pc.RowStep = v
			}
			return n, err
		case 6:
			sub, n, err := consumeMessage(typ, b)
			if err != nil {
				return n, err
			}
			f, err := decodeField(sub)
			pc.Fields = append(pc.Fields, f)
			return n, err
		case 7, 9:
			v, n, err := consumeVarint(num, typ, b)
			if num == 7 {
				pc.IsBigEndian = protowire.DecodeBool(v)
			} else {
				pc.IsDense = protowire.DecodeBool(v)
			}
			return n, err
		case 8:
			data, n, err := consumeBytesCopy(typ, b)
			pc.Data = data
			return n, err
		}
		return skip(num, typ, b)
	})
	return pc, err
}
