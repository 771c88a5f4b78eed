package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/reframe/internal/monitoring"
	"github.com/banshee-data/reframe/internal/timeutil"
)

// Counters are cumulative totals since the node started.
type Counters struct {
	Datagrams      int64 `json:"datagrams"`
	Bytes          int64 `json:"bytes"`
	DecodeErrors   int64 `json:"decode_errors"`
	UnknownTopic   int64 `json:"unknown_topic"`
	InertialIn     int64 `json:"inertial_in"`
	LidarIn        int64 `json:"lidar_in"`
	PointsIn       int64 `json:"points_in"`
	Published      int64 `json:"published"`
	PublishDropped int64 `json:"publish_dropped"`
	// DroppedMalformed counts buffers whose bytes disagree with their geometry.
	DroppedMalformed int64 `json:"dropped_malformed"`
	// DroppedRate counts buffers skipped by the time downsampler.
	DroppedRate int64 `json:"dropped_rate"`
	Errors      int64 `json:"errors"`
}

// Sub returns c - o field by field.
func (c Counters) Sub(o Counters) Counters {
	return Counters{
		Datagrams:        c.Datagrams - o.Datagrams,
		Bytes:            c.Bytes - o.Bytes,
		DecodeErrors:     c.DecodeErrors - o.DecodeErrors,
		UnknownTopic:     c.UnknownTopic - o.UnknownTopic,
		InertialIn:       c.InertialIn - o.InertialIn,
		LidarIn:          c.LidarIn - o.LidarIn,
		PointsIn:         c.PointsIn - o.PointsIn,
		Published:        c.Published - o.Published,
		PublishDropped:   c.PublishDropped - o.PublishDropped,
		DroppedMalformed: c.DroppedMalformed - o.DroppedMalformed,
		DroppedRate:      c.DroppedRate - o.DroppedRate,
		Errors:           c.Errors - o.Errors,
	}
}

// Stats is the node's counter set. It satisfies transport.Stats and
// transport.PublisherStats so the listener and publisher count into it
// directly.
type Stats struct {
	mu        sync.Mutex
	clock     timeutil.Clock
	c         Counters
	lastC     Counters
	lastReset time.Time
}

// NewStats returns zeroed counters. A nil clock means the real clock.
func NewStats(clock timeutil.Clock) *Stats {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Stats{clock: clock, lastReset: clock.Now()}
}

func (s *Stats) add(f func(c *Counters)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.c)
}

func (s *Stats) AddDatagram(bytes int) {
	s.add(func(c *Counters) { c.Datagrams++; c.Bytes += int64(bytes) })
}
func (s *Stats) AddDecodeError()    { s.add(func(c *Counters) { c.DecodeErrors++ }) }
func (s *Stats) AddPublished()      { s.add(func(c *Counters) { c.Published++ }) }
func (s *Stats) AddPublishDropped() { s.add(func(c *Counters) { c.PublishDropped++ }) }

// Snapshot returns the cumulative counters.
func (s *Stats) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c
}

// GetAndReset returns the counts since the previous call and the time that
// covers. Cumulative totals are unaffected.
func (s *Stats) GetAndReset() (Counters, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	delta := s.c.Sub(s.lastC)
	d := now.Sub(s.lastReset)
	s.lastC = s.c
	s.lastReset = now
	return delta, d
}

// LogStats logs the counts since the previous report.
func (s *Stats) LogStats() {
	c, d := s.GetAndReset()
	secs := d.Seconds()
	if secs <= 0 {
		secs = 1
	}
	monitoring.Logf("[stats] %s datagrams (%.1f/s, %s bytes), decode errors %d | in: imu %d, lidar %d, points %d | published %s, publish dropped %d | dropped malformed %d, rate %d | errors %d",
		formatWithCommas(c.Datagrams), float64(c.Datagrams)/secs, formatWithCommas(c.Bytes), c.DecodeErrors,
		c.InertialIn, c.LidarIn, c.PointsIn,
		formatWithCommas(c.Published), c.PublishDropped,
		c.DroppedMalformed, c.DroppedRate, c.Errors)
}

// Report calls LogStats every interval until ctx is cancelled.
func (s *Stats) Report(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.LogStats()
		}
	}
}

func formatWithCommas(n int64) string {
	str := fmt.Sprintf("%d", n)
	neg := n < 0
	if neg {
		str = str[1:]
	}
	if len(str) <= 3 {
		if neg {
			return "-" + str
		}
		return str
	}

	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	if neg {
		return "-" + result
	}
	return result
}
