package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/reframe/internal/testutil"
	"github.com/banshee-data/reframe/internal/transport/wire"
)

type countingStats struct {
	mu        sync.Mutex
	datagrams int
	bytes     int
	decodeErr int
	published int
	dropped   int
}

func (s *countingStats) AddDatagram(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datagrams++
	s.bytes += n
}

func (s *countingStats) AddDecodeError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decodeErr++
}

func (s *countingStats) AddPublished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published++
}

func (s *countingStats) AddPublishDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped++
}

func (s *countingStats) snapshot() countingStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countingStats{datagrams: s.datagrams, bytes: s.bytes, decodeErr: s.decodeErr, published: s.published, dropped: s.dropped}
}

// recorder collects envelopes and signals once want of them have arrived.
type recorder struct {
	mu   sync.Mutex
	got  []wire.Envelope
	want int
	done chan struct{}
}

func newRecorder(want int) *recorder {
	return &recorder{want: want, done: make(chan struct{})}
}

func (r *recorder) HandleEnvelope(_ context.Context, env wire.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, env)
	if len(r.got) == r.want {
		close(r.done)
	}
}

func (r *recorder) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.got))
	for i, e := range r.got {
		out[i] = e.Topic
	}
	return out
}

func cloudDatagram(t *testing.T, topic string, seq uint64) []byte {
	t.Helper()
	pc := testutil.IndexedCloud(4, 3)
	pc.Header.Seq = seq
	b, err := wire.Marshal(wire.Envelope{Topic: topic, Cloud: &pc})
	require.NoError(t, err)
	return b
}

func TestUDPListener_DeliversInOrder(t *testing.T) {
	sock := NewMockUDPSocket(
		cloudDatagram(t, "a", 1),
		[]byte{0xff, 0xff},
		cloudDatagram(t, "b", 2),
		cloudDatagram(t, "c", 3),
	)
	factory := &MockUDPSocketFactory{Socket: sock}
	stats := &countingStats{}
	rec := newRecorder(3)

	l := NewUDPListener(UDPListenerConfig{
		Address:       "127.0.0.1:0",
		RcvBuf:        1 << 20,
		Handler:       rec,
		Stats:         stats,
		SocketFactory: factory,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Start(ctx) }()

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelopes")
	}
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	assert.Equal(t, []string{"a", "b", "c"}, rec.topics())
	s := stats.snapshot()
	assert.Equal(t, 4, s.datagrams)
	assert.Equal(t, 1, s.decodeErr)
	assert.True(t, sock.IsClosed())
	assert.Equal(t, 1<<20, sock.ReadBufferSize)
	require.Len(t, factory.ListenCalls, 1)
}

func TestUDPListener_ListenError(t *testing.T) {
	factory := &MockUDPSocketFactory{Error: errors.New("address in use")}
	l := NewUDPListener(UDPListenerConfig{
		Address:       "127.0.0.1:0",
		Handler:       newRecorder(1),
		SocketFactory: factory,
	})
	err := l.Start(context.Background())
	assert.ErrorContains(t, err, "address in use")
}

func TestUDPListener_RequiresHandler(t *testing.T) {
	l := NewUDPListener(UDPListenerConfig{Address: "127.0.0.1:0"})
	assert.Error(t, l.Start(context.Background()))
}

func TestUDPListener_ReadErrorIsNotFatal(t *testing.T) {
	sock := NewMockUDPSocket(cloudDatagram(t, "after-error", 1))
	sock.ReadError = errors.New("transient")
	rec := newRecorder(1)
	l := NewUDPListener(UDPListenerConfig{
		Address:       "127.0.0.1:0",
		Handler:       rec,
		SocketFactory: &MockUDPSocketFactory{Socket: sock},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Start(ctx)

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener stopped after a transient read error")
	}
	assert.Equal(t, []string{"after-error"}, rec.topics())
}

func TestHandleDatagram_DoesNotAliasBuffer(t *testing.T) {
	rec := newRecorder(1)
	l := NewUDPListener(UDPListenerConfig{Handler: rec})
	b := cloudDatagram(t, "points/input", 9)

	require.NoError(t, l.handleDatagram(context.Background(), b))
	for i := range b {
		b[i] = 0
	}
	want := testutil.IndexedCloud(4, 3)
	assert.Equal(t, want.Data, rec.got[0].Cloud.Data)
}
