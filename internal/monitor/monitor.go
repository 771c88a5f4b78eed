// Package monitor serves the node's debug pages on a tsweb debugger:
// counters as key/value pairs and JSON, and the last downsampled frame as an
// interactive chart and a PNG.
package monitor

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/reframe/internal/httputil"
	"github.com/banshee-data/reframe/internal/lidar/cloud"
	"github.com/banshee-data/reframe/internal/node"
	"github.com/banshee-data/reframe/internal/version"
)

// Source is what the pages report on. *node.Node satisfies it.
type Source interface {
	ID() string
	Stats() *node.Stats
	LastFrame() (cloud.PointBuffer, bool)
}

// Monitor renders debug pages for one Source.
type Monitor struct {
	src       Source
	maxPoints int
}

// New returns a monitor for src.
func New(src Source) *Monitor {
	return &Monitor{src: src, maxPoints: DefaultMaxPoints}
}

// AttachAdminRoutes registers the debug pages under /debug/ on mux.
func (m *Monitor) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.KV("Instance", m.src.ID())
	debug.KV("Build", version.String())
	debug.KVFunc("Datagrams", func() any { return m.src.Stats().Snapshot().Datagrams })
	debug.KVFunc("Published", func() any { return m.src.Stats().Snapshot().Published })
	debug.KVFunc("Dropped (malformed)", func() any { return m.src.Stats().Snapshot().DroppedMalformed })
	debug.KVFunc("Dropped (rate)", func() any { return m.src.Stats().Snapshot().DroppedRate })
	debug.KVFunc("Errors", func() any { return m.src.Stats().Snapshot().Errors })

	debug.HandleFunc("stats", "node counters (JSON)", m.handleStats)
	debug.HandleFunc("frame", "last downsampled frame (chart)", m.handleFrame)
	debug.HandleFunc("frame.png", "last downsampled frame (PNG)", m.handleFramePNG)
}

func (m *Monitor) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, struct {
		Instance string        `json:"instance"`
		Counters node.Counters `json:"counters"`
	}{m.src.ID(), m.src.Stats().Snapshot()})
}

// lastFrame fetches the frame and the max_points query override.
func (m *Monitor) lastFrame(w http.ResponseWriter, r *http.Request) (cloud.PointBuffer, int, bool) {
	maxPoints := m.maxPoints
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 0 && v <= 50000 {
			maxPoints = v
		}
	}
	pc, ok := m.src.LastFrame()
	if !ok {
		httputil.NotFound(w, "no downsampled frame yet")
		return pc, 0, false
	}
	return pc, maxPoints, true
}

func (m *Monitor) handleFrame(w http.ResponseWriter, r *http.Request) {
	pc, maxPoints, ok := m.lastFrame(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := renderScatter(&buf, &pc, maxPoints); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (m *Monitor) handleFramePNG(w http.ResponseWriter, r *http.Request) {
	pc, maxPoints, ok := m.lastFrame(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := renderPNG(&buf, &pc, maxPoints); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

// ListenAndServe serves the debug pages on addr until ctx is cancelled.
func (m *Monitor) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	m.AttachAdminRoutes(mux)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[monitor] debug pages on http://%s/debug/", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
