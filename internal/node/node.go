// Package node is the composition root of reframe.
//
// A Node receives decoded envelopes, routes them by topic to one of three
// pipelines and publishes what the pipelines produce:
//
//	imu/producer    -> frames.Chain       -> imu/neutral, imu/consumer_a, imu/consumer_b
//	lidar/producer  -> reorder.Filter     -> lidar/neutral
//	points/input    -> grid.Downsampler   -> points/downsampled
//
// Each pipeline runs on its own goroutine and processes its records one at a
// time in arrival order. Pipelines share no state. A record that fails is
// logged, counted and skipped; the pipeline carries on with the next one.
package node

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/reframe/internal/config"
	"github.com/banshee-data/reframe/internal/frames"
	"github.com/banshee-data/reframe/internal/lidar/cloud"
	"github.com/banshee-data/reframe/internal/lidar/grid"
	"github.com/banshee-data/reframe/internal/lidar/reorder"
	"github.com/banshee-data/reframe/internal/monitoring"
	"github.com/banshee-data/reframe/internal/timeutil"
	"github.com/banshee-data/reframe/internal/transport/wire"
)

// Pipeline names, as reported to the health service.
const (
	PipelineInertial   = "inertial"
	PipelineReorder    = "lidar_reorder"
	PipelineDownsample = "lidar_downsample"
)

// DefaultQueueSize is the per-pipeline queue length.
const DefaultQueueSize = 64

// Publisher sends an envelope without blocking. *transport.Publisher
// satisfies it.
type Publisher interface {
	Publish(env wire.Envelope) error
}

// Config configures a Node.
type Config struct {
	Topics         config.Topics
	Grid           grid.Params
	TimeDownsample int
	QueueSize      int
	// Stats is shared with the transport so datagram and publish counts land
	// in the same set. Nil means a fresh set on Clock.
	Stats *Stats
	Clock timeutil.Clock
	// OnStatus, if set, is called when a pipeline starts (true) and stops
	// (false) serving.
	OnStatus func(pipeline string, serving bool)
}

// Node routes envelopes through the three pipelines.
type Node struct {
	id       string
	topics   config.Topics
	chain    *frames.Chain
	reorder  *reorder.Filter
	down     *grid.Downsampler
	pub      Publisher
	stats    *Stats
	onStatus func(string, bool)

	inertialQ   chan frames.InertialRecord
	reorderQ    chan cloud.PointBuffer
	downsampleQ chan cloud.PointBuffer

	mu        sync.RWMutex
	lastFrame *cloud.PointBuffer
}

// New builds a node. Invalid grid parameters are rejected here so the
// process never starts with them.
func New(cfg Config, pub Publisher) (*Node, error) {
	if pub == nil {
		return nil, errors.New("node: publisher is required")
	}
	down, err := grid.New(cfg.Grid, cfg.TimeDownsample)
	if err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}
	topics := cfg.Topics
	if topics == (config.Topics{}) {
		topics = config.DefaultTopics()
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = DefaultQueueSize
	}
	stats := cfg.Stats
	if stats == nil {
		stats = NewStats(cfg.Clock)
	}
	onStatus := cfg.OnStatus
	if onStatus == nil {
		onStatus = func(string, bool) {}
	}
	return &Node{
		id:          uuid.NewString(),
		topics:      topics,
		chain:       frames.NewChain(),
		reorder:     reorder.NewProducerToNeutral(),
		down:        down,
		pub:         pub,
		stats:       stats,
		onStatus:    onStatus,
		inertialQ:   make(chan frames.InertialRecord, queue),
		reorderQ:    make(chan cloud.PointBuffer, queue),
		downsampleQ: make(chan cloud.PointBuffer, queue),
	}, nil
}

// ID is a random identifier for this process instance.
func (n *Node) ID() string { return n.id }

// Stats returns the node's counters.
func (n *Node) Stats() *Stats { return n.stats }

// Topics returns the topic names in use.
func (n *Node) Topics() config.Topics { return n.topics }

// Pipelines lists the pipeline names.
func (n *Node) Pipelines() []string {
	return []string{PipelineInertial, PipelineReorder, PipelineDownsample}
}

// LastFrame returns the most recent downsampled buffer.
func (n *Node) LastFrame() (cloud.PointBuffer, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.lastFrame == nil {
		return cloud.PointBuffer{}, false
	}
	return *n.lastFrame, true
}

// HandleEnvelope queues env on the pipeline its topic selects. It blocks
// while that pipeline's queue is full, so order is kept.
func (n *Node) HandleEnvelope(ctx context.Context, env wire.Envelope) {
	switch env.Topic {
	case n.topics.InertialIn:
		if env.Inertial == nil {
			n.reject(env, "carries no inertial record")
			return
		}
		select {
		case n.inertialQ <- *env.Inertial:
		case <-ctx.Done():
		}
	case n.topics.LidarIn:
		if env.Cloud == nil {
			n.reject(env, "carries no point buffer")
			return
		}
		select {
		case n.reorderQ <- *env.Cloud:
		case <-ctx.Done():
		}
	case n.topics.PointsIn:
		if env.Cloud == nil {
			n.reject(env, "carries no point buffer")
			return
		}
		select {
		case n.downsampleQ <- *env.Cloud:
		case <-ctx.Done():
		}
	default:
		n.stats.add(func(c *Counters) { c.UnknownTopic++ })
		debugf("ignoring envelope on unknown topic %q", env.Topic)
	}
}

func (n *Node) reject(env wire.Envelope, why string) {
	n.stats.add(func(c *Counters) { c.Errors++ })
	monitoring.Logf("node: envelope on %q %s; skipped", env.Topic, why)
}

// Run serves the three pipelines until ctx is cancelled, then waits for them
// to stop.
func (n *Node) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	serve := func(name string, step func(ctx context.Context) bool) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.onStatus(name, true)
			defer n.onStatus(name, false)
			for step(ctx) {
			}
		}()
	}

	serve(PipelineInertial, func(ctx context.Context) bool {
		select {
		case <-ctx.Done():
			return false
		case rec := <-n.inertialQ:
			n.ProcessInertial(rec)
			return true
		}
	})
	serve(PipelineReorder, func(ctx context.Context) bool {
		select {
		case <-ctx.Done():
			return false
		case pc := <-n.reorderQ:
			n.ProcessLidar(pc)
			return true
		}
	})
	serve(PipelineDownsample, func(ctx context.Context) bool {
		select {
		case <-ctx.Done():
			return false
		case pc := <-n.downsampleQ:
			n.ProcessPoints(pc)
			return true
		}
	})

	monitoring.Logf("node %s running", n.id)
	wg.Wait()
	monitoring.Logf("node %s stopped", n.id)
	return ctx.Err()
}

// ProcessInertial runs rec through the frame chain and publishes the neutral
// and consumer records. It returns the error that caused rec to be skipped.
func (n *Node) ProcessInertial(rec frames.InertialRecord) error {
	n.stats.add(func(c *Counters) { c.InertialIn++ })
	outs, err := n.chain.Process(rec)
	if err != nil {
		n.stats.add(func(c *Counters) { c.Errors++ })
		monitoring.Logf("node: inertial seq=%d skipped: %v", rec.Header.Seq, err)
		return err
	}
	topics := []string{n.topics.InertialNeutral, n.topics.InertialConsumerA, n.topics.InertialConsumerB}
	for i := range outs {
		if i >= len(topics) {
			break
		}
		n.publish(wire.Envelope{Topic: topics[i], Inertial: &outs[i]})
	}
	return nil
}

// ProcessLidar re-expresses pc in the neutral convention and publishes it.
func (n *Node) ProcessLidar(pc cloud.PointBuffer) error {
	n.stats.add(func(c *Counters) { c.LidarIn++ })
	out, err := n.reorder.Apply(pc)
	if err != nil {
		n.countFailure(err)
		monitoring.Logf("node: lidar seq=%d skipped: %v", pc.Header.Seq, err)
		return err
	}
	n.publish(wire.Envelope{Topic: n.topics.LidarNeutral, Cloud: &out})
	return nil
}

// ProcessPoints runs pc through the grid downsampler and publishes the
// result when the time gate admits it.
func (n *Node) ProcessPoints(pc cloud.PointBuffer) error {
	n.stats.add(func(c *Counters) { c.PointsIn++ })
	out, ok, err := n.down.Process(pc)
	if !ok {
		n.stats.add(func(c *Counters) { c.DroppedRate++ })
		return nil
	}
	if err != nil {
		n.countFailure(err)
		monitoring.Logf("node: points seq=%d skipped: %v", pc.Header.Seq, err)
		return err
	}

	n.mu.Lock()
	n.lastFrame = &out
	n.mu.Unlock()

	n.publish(wire.Envelope{Topic: n.topics.PointsOut, Cloud: &out})
	return nil
}

func (n *Node) countFailure(err error) {
	if errors.Is(err, cloud.ErrMalformedBuffer) {
		n.stats.add(func(c *Counters) { c.DroppedMalformed++ })
		return
	}
	n.stats.add(func(c *Counters) { c.Errors++ })
}

func (n *Node) publish(env wire.Envelope) {
	if err := n.pub.Publish(env); err != nil {
		n.stats.add(func(c *Counters) { c.Errors++ })
		monitoring.Logf("node: publish on %q failed: %v", env.Topic, err)
	}
}
