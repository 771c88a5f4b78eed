package transport

import (
	"net"
	"sync"
	"time"
)

// UDPSocket is the receive side of a UDP socket. It exists so the listener
// can be driven by MockUDPSocket in tests.
type UDPSocket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	Close() error
	LocalAddr() net.Addr
}

// UDPSocketFactory creates receive sockets.
type UDPSocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error)
}

// PacketConn is the send side used by Publisher. *net.UDPConn satisfies it.
type PacketConn interface {
	Write(b []byte) (int, error)
	Close() error
}

// RealUDPSocketFactory implements UDPSocketFactory with net.ListenUDP.
type RealUDPSocketFactory struct{}

// ListenUDP opens a UDP socket. *net.UDPConn already satisfies UDPSocket.
func (RealUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// MockUDPSocket implements UDPSocket for testing. Once Packets are exhausted
// every read times out, as a real socket with a read deadline would.
type MockUDPSocket struct {
	mu sync.Mutex

	Packets        []MockUDPPacket
	ReadIndex      int
	Closed         bool
	ReadBufferSize int
	LocalAddress   *net.UDPAddr
	// ReadError is returned once by the next ReadFromUDP call.
	ReadError error
	// SetReadBufferError is returned by SetReadBuffer if set.
	SetReadBufferError error
}

// MockUDPPacket is one datagram served by MockUDPSocket.
type MockUDPPacket struct {
	Data []byte
	Addr *net.UDPAddr
}

// NewMockUDPSocket returns a socket that serves packets in order.
func NewMockUDPSocket(packets ...[]byte) *MockUDPSocket {
	m := &MockUDPSocket{
		LocalAddress: &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 2370},
	}
	for _, p := range packets {
		m.Packets = append(m.Packets, MockUDPPacket{
			Data: p,
			Addr: &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40000},
		})
	}
	return m
}

// ReadFromUDP returns the next packet, or a timeout when none are left.
func (m *MockUDPSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return 0, nil, net.ErrClosed
	}
	if m.ReadError != nil {
		err := m.ReadError
		m.ReadError = nil
		return 0, nil, err
	}
	if m.ReadIndex >= len(m.Packets) {
		// Yield so a caller spinning on timeouts does not starve the test.
		m.mu.Unlock()
		time.Sleep(time.Millisecond)
		m.mu.Lock()
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: timeoutError{}}
	}
	pkt := m.Packets[m.ReadIndex]
	m.ReadIndex++
	return copy(b, pkt.Data), pkt.Addr, nil
}

// SetReadBuffer records the buffer size.
func (m *MockUDPSocket) SetReadBuffer(bytes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetReadBufferError != nil {
		return m.SetReadBufferError
	}
	m.ReadBufferSize = bytes
	return nil
}

// SetReadDeadline is a no-op.
func (m *MockUDPSocket) SetReadDeadline(time.Time) error { return nil }

// Close marks the socket closed.
func (m *MockUDPSocket) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (m *MockUDPSocket) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}

// LocalAddr returns LocalAddress.
func (m *MockUDPSocket) LocalAddr() net.Addr { return m.LocalAddress }

// MockUDPSocketFactory hands out a fixed socket and records the requests.
type MockUDPSocketFactory struct {
	Socket      *MockUDPSocket
	Error       error
	ListenCalls []*net.UDPAddr
}

// ListenUDP returns Socket, or Error if set.
func (f *MockUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	f.ListenCalls = append(f.ListenCalls, laddr)
	if f.Error != nil {
		return nil, f.Error
	}
	return f.Socket, nil
}

// MockPacketConn records every datagram written to it.
type MockPacketConn struct {
	mu       sync.Mutex
	written  [][]byte
	WriteErr error
	closed   bool
}

// Write records a copy of b.
func (c *MockPacketConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		return 0, c.WriteErr
	}
	c.written = append(c.written, append([]byte{}, b...))
	return len(b), nil
}

// Close marks the connection closed.
func (c *MockPacketConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Written returns the datagrams written so far.
func (c *MockPacketConn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte{}, c.written...)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
