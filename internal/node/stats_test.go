package node

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/reframe/internal/monitoring"
	"github.com/banshee-data/reframe/internal/timeutil"
)

func TestStats_GetAndResetKeepsTotals(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	s := NewStats(clock)

	s.AddDatagram(100)
	s.AddDatagram(50)
	s.AddDecodeError()
	clock.Advance(2 * time.Second)

	delta, d := s.GetAndReset()
	assert.Equal(t, int64(2), delta.Datagrams)
	assert.Equal(t, int64(150), delta.Bytes)
	assert.Equal(t, int64(1), delta.DecodeErrors)
	assert.Equal(t, 2*time.Second, d)

	s.AddPublished()
	s.AddPublishDropped()
	delta, _ = s.GetAndReset()
	assert.Equal(t, Counters{Published: 1, PublishDropped: 1}, delta)

	total := s.Snapshot()
	assert.Equal(t, int64(2), total.Datagrams)
	assert.Equal(t, int64(1), total.Published)
}

func TestStats_ReportLogsOnTick(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	orig := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	defer func() { monitoring.Logf = orig }()

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	s := NewStats(clock)
	s.AddDatagram(1234567)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Report(ctx, time.Second)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		clock.Advance(time.Second)
		mu.Lock()
		defer mu.Unlock()
		return len(lines) > 0
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.Contains(lines[0], "1,234,567 bytes"), lines[0])
}

func TestFormatWithCommas(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-45000, "-45,000"},
	}
	for _, tt := range tests {
		if got := formatWithCommas(tt.in); got != tt.want {
			t.Errorf("formatWithCommas(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
