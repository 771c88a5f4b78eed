// Package wire encodes inertial records and point buffers in protobuf wire
// format. Messages are built field by field with protowire, so no generated
// code is needed; field numbers are fixed below and must not be reused.
//
//	message Envelope   { string topic = 1; Inertial inertial = 2; Cloud cloud = 3; }
//	message Header     { uint64 seq = 1; sfixed64 stamp_ns = 2; string frame_id = 3; }
//	message Vec3       { double x = 1; double y = 2; double z = 3; }
//	message Quaternion { double w = 1; double x = 2; double y = 3; double z = 4; }
//	message Inertial   { Header header = 1; string convention = 2;
//	                     Vec3 angular_velocity = 3; Vec3 linear_acceleration = 4;
//	                     Quaternion orientation = 5;
//	                     repeated double orientation_covariance = 6 [packed];
//	                     repeated double angular_velocity_covariance = 7 [packed];
//	                     repeated double linear_acceleration_covariance = 8 [packed]; }
//	message Field      { string name = 1; uint32 offset = 2; uint32 datatype = 3; uint32 count = 4; }
//	message Cloud      { Header header = 1; uint32 height = 2; uint32 width = 3;
//	                     uint32 point_step = 4; uint32 row_step = 5; repeated Field fields = 6;
//	                     bool is_bigendian = 7; bytes data = 8; bool is_dense = 9; }
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/banshee-data/reframe/internal/frames"
	"github.com/banshee-data/reframe/internal/lidar/cloud"
)

// ErrDecode wraps every decoding failure.
var ErrDecode = errors.New("wire: decode")

// Envelope is one message on a topic. Exactly one of Inertial and Cloud is
// set.
type Envelope struct {
	Topic    string
	Inertial *frames.InertialRecord
	Cloud    *cloud.PointBuffer
}

const (
	envTopic    protowire.Number = 1
	envInertial protowire.Number = 2
	envCloud    protowire.Number = 3
)

// Marshal encodes e.
func Marshal(e Envelope) ([]byte, error) {
	if (e.Inertial == nil) == (e.Cloud == nil) {
		return nil, fmt.Errorf("wire: envelope for %q must carry exactly one payload", e.Topic)
	}
	var b []byte
	b = appendString(b, envTopic, e.Topic)
	if e.Inertial != nil {
		b = appendMessage(b, envInertial, appendInertial(nil, e.Inertial))
	} else {
		b = appendMessage(b, envCloud, appendCloud(nil, e.Cloud))
	}
	return b, nil
}

// Unmarshal decodes an envelope. The returned buffers do not alias b.
func Unmarshal(b []byte) (Envelope, error) {
	var e Envelope
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case envTopic:
			s, n, err := consumeString(typ, b)
			e.Topic = s
			return n, err
		case envInertial:
			m, n, err := consumeMessage(typ, b)
			if err != nil {
				return n, err
			}
			rec, err := decodeInertial(m)
			e.Inertial = &rec
			return n, err
		case envCloud:
			m, n, err := consumeMessage(typ, b)
			if err != nil {
				return n, err
			}
			pc, err := decodeCloud(m)
			e.Cloud = &pc
			return n, err
		}
		return skip(num, typ, b)
	})
	if err != nil {
		return Envelope{}, err
	}
	if (e.Inertial == nil) == (e.Cloud == nil) {
		return Envelope{}, fmt.Errorf("%w: envelope for %q must carry exactly one payload", ErrDecode, e.Topic)
	}
	return e, nil
}
