package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/banshee-data/reframe/internal/transport/wire"
)

// DefaultQueueSize is the number of encoded envelopes a Publisher buffers.
const DefaultQueueSize = 1000

// PublisherStats counts what leaves on the wire.
type PublisherStats interface {
	AddPublished()
	AddPublishDropped()
}

// Publisher sends envelopes to one UDP destination without blocking the
// caller. When the queue is full the envelope is dropped and counted.
type Publisher struct {
	conn        PacketConn
	queue       chan []byte
	stats       PublisherStats
	logInterval time.Duration
	address     string
}

// NewPublisher dials addr.
func NewPublisher(addr string, stats PublisherStats, logInterval time.Duration) (*Publisher, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve publish address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create publish connection: %w", err)
	}
	return NewPublisherConn(conn, addr, stats, logInterval, DefaultQueueSize), nil
}

// NewPublisherConn wraps an existing connection.
func NewPublisherConn(conn PacketConn, addr string, stats PublisherStats, logInterval time.Duration, queueSize int) *Publisher {
	if stats == nil {
		stats = noopStats{}
	}
	if logInterval <= 0 {
		logInterval = time.Minute
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Publisher{
		conn:        conn,
		queue:       make(chan []byte, queueSize),
		stats:       stats,
		logInterval: logInterval,
		address:     addr,
	}
}

// Start runs the send loop until ctx is cancelled. Write failures are
// counted as drops and summarised once per log interval.
func (p *Publisher) Start(ctx context.Context) {
	go func() {
		failed := 0
		var lastErr error
		ticker := time.NewTicker(p.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case b := <-p.queue:
				if _, err := p.conn.Write(b); err != nil {
					failed++
					lastErr = err
					p.stats.AddPublishDropped()
					continue
				}
				p.stats.AddPublished()
			case <-ticker.C:
				if failed > 0 {
					log.Printf("Dropped %d published envelopes due to errors (latest: %v)", failed, lastErr)
					failed = 0
					lastErr = nil
				}
			}
		}
	}()
	log.Printf("Publishing envelopes to %s", p.address)
}

// Publish encodes env and queues it. It never blocks; an error means env
// could not be encoded or exceeds one datagram.
func (p *Publisher) Publish(env wire.Envelope) error {
	b, err := wire.Marshal(env)
	if err != nil {
		return err
	}
	if len(b) > MaxDatagram {
		p.stats.AddPublishDropped()
		return fmt.Errorf("envelope for %q is %d bytes, larger than one datagram", env.Topic, len(b))
	}
	select {
	case p.queue <- b:
	default:
		p.stats.AddPublishDropped()
	}
	return nil
}

// Close closes the connection. The send loop stops with its context.
func (p *Publisher) Close() error {
	return p.conn.Close()
}
