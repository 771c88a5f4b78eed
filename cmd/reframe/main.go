// Command reframe re-expresses inertial and lidar streams in the neutral and
// consumer axis conventions and downsamples organised point clouds.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/reframe/internal/config"
	"github.com/banshee-data/reframe/internal/frames"
	"github.com/banshee-data/reframe/internal/health"
	"github.com/banshee-data/reframe/internal/lidar/grid"
	"github.com/banshee-data/reframe/internal/lidar/reorder"
	"github.com/banshee-data/reframe/internal/monitor"
	"github.com/banshee-data/reframe/internal/monitoring"
	"github.com/banshee-data/reframe/internal/node"
	"github.com/banshee-data/reframe/internal/transport"
	"github.com/banshee-data/reframe/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to JSON config file (defaults apply when empty)")
	pcapFile    = flag.String("pcap", "", "Replay envelopes from a pcap/pcapng capture instead of listening on UDP")
	pcapPort    = flag.Int("pcap-port", 0, "UDP destination port to replay from the capture (0 = listen_addr port, -1 = all)")
	debugLog    = flag.Bool("debug", false, "Log per-record diagnostics from every stage")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Empty(), nil
	}
	return config.Load(path)
}

// replayPort resolves -pcap-port against the configured listen address.
func replayPort(flagPort int, listenAddr string) (int, error) {
	switch {
	case flagPort < 0:
		return 0, nil
	case flagPort > 0:
		return flagPort, nil
	}
	return config.PortOf(listenAddr)
}

func enableDebug() {
	frames.SetDebugLogger(os.Stderr)
	reorder.SetDebugLogger(os.Stderr)
	grid.SetDebugLogger(os.Stderr)
	node.SetDebugLogger(os.Stderr)
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *debugLog {
		enableDebug()
	}
	log.Printf("%s starting", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats := node.NewStats(nil)
	pub, err := transport.NewPublisher(cfg.GetPublishAddr(), stats, cfg.GetLogInterval())
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	defer pub.Close()

	hs := health.NewServer(node.PipelineInertial, node.PipelineReorder, node.PipelineDownsample)
	n, err := node.New(node.Config{
		Topics:         cfg.GetTopics(),
		Grid:           cfg.GridParams(),
		TimeDownsample: cfg.GetTimeDownsample(),
		Stats:          stats,
		OnStatus:       hs.SetServing,
	}, pub)
	if err != nil {
		log.Fatalf("failed to create node: %v", err)
	}
	monitoring.Logf("node instance %s", n.ID())

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && err != context.Canceled {
				log.Printf("%s: %v", name, err)
			}
			log.Printf("%s routine terminated", name)
		}()
	}

	pub.Start(ctx)
	run("node", func() error { return n.Run(ctx) })
	run("stats", func() error { stats.Report(ctx, cfg.GetLogInterval()); return nil })

	if addr := cfg.GetHealthAddr(); addr != "" {
		run("health", func() error { return hs.ListenAndServe(ctx, addr) })
	}
	if addr := cfg.GetMonitorAddr(); addr != "" {
		run("monitor", func() error { return monitor.New(n).ListenAndServe(ctx, addr) })
	}

	if *pcapFile != "" {
		port, err := replayPort(*pcapPort, cfg.GetListenAddr())
		if err != nil {
			log.Fatalf("invalid replay port: %v", err)
		}
		run("pcap", func() error {
			f, err := os.Open(*pcapFile)
			if err != nil {
				return fmt.Errorf("failed to open capture: %w", err)
			}
			defer f.Close()
			if err := transport.ReplayPCAP(ctx, f, port, n, stats); err != nil {
				return err
			}
			log.Printf("replay of %s finished; debug pages stay up until interrupted", *pcapFile)
			return nil
		})
	} else {
		listener := transport.NewUDPListener(transport.UDPListenerConfig{
			Address: cfg.GetListenAddr(),
			RcvBuf:  cfg.GetRcvBuf(),
			Handler: n,
			Stats:   stats,
		})
		run("listener", func() error { return listener.Start(ctx) })
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
