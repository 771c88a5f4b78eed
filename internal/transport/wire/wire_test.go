package wire

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/banshee-data/reframe/internal/frames"
	"github.com/banshee-data/reframe/internal/lidar/cloud"
	"github.com/banshee-data/reframe/internal/testutil"
)

func cloudHeader(seq uint64) cloud.Header {
	return cloud.Header{Seq: seq, Stamp: time.Unix(1700000000, 0), FrameID: "lidar"}
}

func sampleInertial() frames.InertialRecord {
	q := quat.Number{Real: 0.5, Imag: 0.5, Jmag: -0.5, Kmag: 0.5}
	return frames.InertialRecord{
		Header:                       frames.Header{Seq: 42, Stamp: time.Unix(1700000000, 123), FrameID: "imu_link"},
		Convention:                   frames.Producer,
		AngularVelocity:              r3.Vec{X: 0.1, Y: -0.2, Z: 0.3},
		LinearAcceleration:           r3.Vec{X: 0, Y: 0, Z: 9.81},
		Orientation:                  &q,
		OrientationCovariance:        frames.Covariance{1, 0, 0, 0, 2, 0, 0, 0, 3},
		AngularVelocityCovariance:    frames.UnknownCovariance,
		LinearAccelerationCovariance: frames.Covariance{0.5, 0.1, 0, 0.1, 0.5, 0, 0, 0, 0.5},
	}
}

func TestRoundTrip_Inertial(t *testing.T) {
	rec := sampleInertial()
	b, err := Marshal(Envelope{Topic: "imu/producer", Inertial: &rec})
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, "imu/producer", got.Topic)
	assert.Nil(t, got.Cloud)
	require.NotNil(t, got.Inertial)
	if diff := cmp.Diff(rec, *got.Inertial); diff != "" {
		t.Errorf("inertial mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_InertialWithoutOrientation(t *testing.T) {
	rec := sampleInertial()
	rec.Orientation = nil
	rec.Header.Stamp = time.Time{}
	b, err := Marshal(Envelope{Topic: "imu/neutral", Inertial: &rec})
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.False(t, got.Inertial.HasOrientation())
	assert.True(t, got.Inertial.Header.Stamp.IsZero())
}

func TestRoundTrip_Cloud(t *testing.T) {
	pc := testutil.IndexedCloud(5, 4)
	pc.Header = cloudHeader(7)
	b, err := Marshal(Envelope{Topic: "points/input", Cloud: &pc})
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	require.NotNil(t, got.Cloud)
	if diff := cmp.Diff(pc, *got.Cloud); diff != "" {
		t.Errorf("cloud mismatch (-want +got):\n%s", diff)
	}

	// Decoded data must not alias the receive buffer.
	for i := range b {
		b[i] = 0
	}
	assert.Equal(t, pc.Data, got.Cloud.Data)
}

func TestMarshal_RequiresExactlyOnePayload(t *testing.T) {
	_, err := Marshal(Envelope{Topic: "empty"})
	assert.Error(t, err)

	rec := sampleInertial()
	pc := testutil.IndexedCloud(1, 3)
	_, err = Marshal(Envelope{Topic: "both", Inertial: &rec, Cloud: &pc})
	assert.Error(t, err)
}

func TestUnmarshal_Errors(t *testing.T) {
	rec := sampleInertial()
	good, err := Marshal(Envelope{Topic: "imu/producer", Inertial: &rec})
	require.NoError(t, err)

	unknownConv := rec
	unknownConv.Convention = frames.Convention{Name: "enu"}
	badConv, err := Marshal(Envelope{Topic: "imu/producer", Inertial: &unknownConv})
	require.NoError(t, err)

	var wrongType []byte
	wrongType = protowire.AppendTag(wrongType, envTopic, protowire.VarintType)
	wrongType = protowire.AppendVarint(wrongType, 3)

	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"truncated", good[:len(good)-3]},
		{"garbage tag", []byte{0xff, 0xff, 0xff}},
		{"topic only", appendString(nil, envTopic, "imu/producer")},
		{"unknown convention", badConv},
		{"wrong wire type", wrongType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.in)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	rec := sampleInertial()
	b, err := Marshal(Envelope{Topic: "imu/producer", Inertial: &rec})
	require.NoError(t, err)
	b = appendString(b, 15, "added later")

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, rec.Header.Seq, got.Inertial.Header.Seq)
}

func TestUnmarshal_MissingCovarianceIsUnknown(t *testing.T) {
	var m []byte
	m = appendString(m, 2, frames.Neutral.Name)
	b := appendString(nil, envTopic, "imu/neutral")
	b = appendMessage(b, envInertial, m)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.True(t, got.Inertial.OrientationCovariance.Unknown())
	assert.True(t, got.Inertial.AngularVelocityCovariance.Unknown())
	assert.True(t, got.Inertial.LinearAccelerationCovariance.Unknown())
}
