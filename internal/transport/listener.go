// Package transport moves wire envelopes over UDP: a listener that decodes
// datagrams and hands them to a Handler, an asynchronous publisher, and a
// pcap replayer that feeds captured datagrams through the same Handler.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/banshee-data/reframe/internal/transport/wire"
)

// MaxDatagram is the largest UDP payload the listener accepts.
const MaxDatagram = 65535

// Handler receives decoded envelopes. It is called from a single goroutine,
// in arrival order.
type Handler interface {
	HandleEnvelope(ctx context.Context, env wire.Envelope)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, env wire.Envelope)

// HandleEnvelope calls f.
func (f HandlerFunc) HandleEnvelope(ctx context.Context, env wire.Envelope) { f(ctx, env) }

// Stats counts what arrives on the wire.
type Stats interface {
	AddDatagram(bytes int)
	AddDecodeError()
}

type noopStats struct{}

func (noopStats) AddDatagram(int)    {}
func (noopStats) AddDecodeError()    {}
func (noopStats) AddPublished()      {}
func (noopStats) AddPublishDropped() {}

// UDPListenerConfig configures a UDPListener.
type UDPListenerConfig struct {
	Address string
	RcvBuf  int
	Handler Handler
	// Stats defaults to a no-op collector.
	Stats Stats
	// SocketFactory defaults to RealUDPSocketFactory.
	SocketFactory UDPSocketFactory
}

// UDPListener receives envelopes on a UDP socket.
type UDPListener struct {
	address string
	rcvBuf  int
	handler Handler
	stats   Stats
	factory UDPSocketFactory
}

// NewUDPListener creates a listener. It does not open the socket.
func NewUDPListener(cfg UDPListenerConfig) *UDPListener {
	var stats Stats = noopStats{}
	if cfg.Stats != nil {
		stats = cfg.Stats
	}
	var factory UDPSocketFactory = RealUDPSocketFactory{}
	if cfg.SocketFactory != nil {
		factory = cfg.SocketFactory
	}
	return &UDPListener{
		address: cfg.Address,
		rcvBuf:  cfg.RcvBuf,
		handler: cfg.Handler,
		stats:   stats,
		factory: factory,
	}
}

// Start opens the socket and serves until ctx is cancelled. It returns
// ctx.Err() on cancellation.
func (l *UDPListener) Start(ctx context.Context) error {
	if l.handler == nil {
		return errors.New("transport: listener has no handler")
	}
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := l.factory.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			log.Printf("Warning: Failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}
	log.Printf("UDP listener started on %s with receive buffer %d bytes", conn.LocalAddr(), l.rcvBuf)

	buffer := make([]byte, MaxDatagram)
	for {
		select {
		case <-ctx.Done():
			log.Print("UDP listener stopping due to context cancellation")
			return ctx.Err()
		default:
		}

		// The deadline bounds how long a cancelled context goes unnoticed.
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Printf("UDP read error: %v", err)
			continue
		}
		if err := l.handleDatagram(ctx, buffer[:n]); err != nil {
			log.Printf("Dropping datagram from %v: %v", from, err)
		}
	}
}

// handleDatagram decodes one datagram and passes it on. The envelope never
// aliases the receive buffer.
func (l *UDPListener) handleDatagram(ctx context.Context, b []byte) error {
	l.stats.AddDatagram(len(b))
	env, err := wire.Unmarshal(b)
	if err != nil {
		l.stats.AddDecodeError()
		return err
	}
	l.handler.HandleEnvelope(ctx, env)
	return nil
}
