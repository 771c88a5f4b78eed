// Package config loads the reframe node configuration.
//
// The configuration is read once at startup and never changes afterwards.
// Every field is optional in the JSON file; the Get* accessors fall back to
// the documented defaults, so partial files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/banshee-data/reframe/internal/lidar/grid"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/reframe.defaults.json"

// ErrInvalidConfiguration is wrapped by every validation failure.
var ErrInvalidConfiguration = grid.ErrInvalidConfiguration

// Defaults, matching config/reframe.defaults.json.
const (
	DefaultChannels        = 64
	DefaultVertDownsample  = 4
	DefaultHorizDownsample = 2
	DefaultTimeDownsample  = 1
	DefaultListenAddr      = ":2370"
	DefaultPublishAddr     = "127.0.0.1:2371"
	DefaultHealthAddr      = ":50071"
	DefaultMonitorAddr     = ":8082"
	DefaultRcvBuf          = 4 << 20
	DefaultLogInterval     = time.Minute
)

// Topics names the input and output streams.
type Topics struct {
	InertialIn        string `json:"inertial_in,omitempty"`
	InertialNeutral   string `json:"inertial_neutral,omitempty"`
	InertialConsumerA string `json:"inertial_consumer_a,omitempty"`
	InertialConsumerB string `json:"inertial_consumer_b,omitempty"`
	LidarIn           string `json:"lidar_in,omitempty"`
	LidarNeutral      string `json:"lidar_neutral,omitempty"`
	PointsIn          string `json:"points_in,omitempty"`
	PointsOut         string `json:"points_out,omitempty"`
}

// DefaultTopics returns the default topic names.
func DefaultTopics() Topics {
	return Topics{
		InertialIn:        "imu/producer",
		InertialNeutral:   "imu/neutral",
		InertialConsumerA: "imu/consumer_a",
		InertialConsumerB: "imu/consumer_b",
		LidarIn:           "lidar/producer",
		LidarNeutral:      "lidar/neutral",
		PointsIn:          "points/input",
		PointsOut:         "points/downsampled",
	}
}

// Config is the root configuration.
type Config struct {
	// Grid downsampler
	Channels        *int  `json:"channels,omitempty"`
	VertDownsample  *int  `json:"vert_downsample,omitempty"`
	HorizDownsample *int  `json:"horiz_downsample,omitempty"`
	TimeDownsample  *int  `json:"time_downsample,omitempty"`
	Transpose       *bool `json:"transpose,omitempty"`

	// Transport
	ListenAddr  *string `json:"listen_addr,omitempty"`
	PublishAddr *string `json:"publish_addr,omitempty"`
	RcvBuf      *int    `json:"rcvbuf,omitempty"`
	LogInterval *string `json:"log_interval,omitempty"` // duration string like "30s"
	Topics      *Topics `json:"topics,omitempty"`

	// Side services; an empty string disables the service.
	HealthAddr  *string `json:"health_addr,omitempty"`
	MonitorAddr *string `json:"monitor_addr,omitempty"`
}

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads and validates a JSON config file.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a JSON document.
func Parse(data []byte) (*Config, error) {
	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects non-positive channel counts and strides. The node refuses
// to start on any error here.
func (c *Config) Validate() error {
	positive := []struct {
		name string
		v    *int
	}{
		{"channels", c.Channels},
		{"vert_downsample", c.VertDownsample},
		{"horiz_downsample", c.HorizDownsample},
		{"time_downsample", c.TimeDownsample},
		{"rcvbuf", c.RcvBuf},
	}
	for _, p := range positive {
		if p.v != nil && *p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfiguration, p.name, *p.v)
		}
	}

	if c.LogInterval != nil && *c.LogInterval != "" {
		d, err := time.ParseDuration(*c.LogInterval)
		if err != nil {
			return fmt.Errorf("%w: invalid log_interval '%s': %v", ErrInvalidConfiguration, *c.LogInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: log_interval must be positive, got %s", ErrInvalidConfiguration, d)
		}
	}

	if c.ListenAddr != nil && *c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr must not be empty", ErrInvalidConfiguration)
	}
	return nil
}

// GridParams returns the downsampler selection parameters.
func (c *Config) GridParams() grid.Params {
	return grid.Params{
		Channels:        c.GetChannels(),
		VertDownsample:  c.GetVertDownsample(),
		HorizDownsample: c.GetHorizDownsample(),
		Transpose:       c.GetTranspose(),
	}
}

// GetChannels returns the channels value or the default.
func (c *Config) GetChannels() int {
	if c.Channels == nil {
		return DefaultChannels
	}
	return *c.Channels
}

// GetVertDownsample returns the vert_downsample value or the default.
func (c *Config) GetVertDownsample() int {
	if c.VertDownsample == nil {
		return DefaultVertDownsample
	}
	return *c.VertDownsample
}

// GetHorizDownsample returns the horiz_downsample value or the default.
func (c *Config) GetHorizDownsample() int {
	if c.HorizDownsample == nil {
		return DefaultHorizDownsample
	}
	return *c.HorizDownsample
}

// GetTimeDownsample returns the time_downsample value or the default.
func (c *Config) GetTimeDownsample() int {
	if c.TimeDownsample == nil {
		return DefaultTimeDownsample
	}
	return *c.TimeDownsample
}

// GetTranspose returns the transpose value or the default.
func (c *Config) GetTranspose() bool {
	if c.Transpose == nil {
		return false
	}
	return *c.Transpose
}

// GetListenAddr returns the UDP listen address.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil {
		return DefaultListenAddr
	}
	return *c.ListenAddr
}

// GetPublishAddr returns the UDP address outputs are sent to.
func (c *Config) GetPublishAddr() string {
	if c.PublishAddr == nil {
		return DefaultPublishAddr
	}
	return *c.PublishAddr
}

// GetRcvBuf returns the UDP receive buffer size in bytes.
func (c *Config) GetRcvBuf() int {
	if c.RcvBuf == nil {
		return DefaultRcvBuf
	}
	return *c.RcvBuf
}

// GetLogInterval parses and returns the statistics logging interval.
func (c *Config) GetLogInterval() time.Duration {
	if c.LogInterval == nil || *c.LogInterval == "" {
		return DefaultLogInterval
	}
	d, err := time.ParseDuration(*c.LogInterval)
	if err != nil {
		return DefaultLogInterval
	}
	return d
}

// GetTopics returns the topic names, filling unset entries with defaults.
func (c *Config) GetTopics() Topics {
	d := DefaultTopics()
	if c.Topics == nil {
		return d
	}
	t := *c.Topics
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&t.InertialIn, d.InertialIn)
	fill(&t.InertialNeutral, d.InertialNeutral)
	fill(&t.InertialConsumerA, d.InertialConsumerA)
	fill(&t.InertialConsumerB, d.InertialConsumerB)
	fill(&t.LidarIn, d.LidarIn)
	fill(&t.LidarNeutral, d.LidarNeutral)
	fill(&t.PointsIn, d.PointsIn)
	fill(&t.PointsOut, d.PointsOut)
	return t
}

// GetHealthAddr returns the gRPC health listen address; empty disables it.
func (c *Config) GetHealthAddr() string {
	if c.HealthAddr == nil {
		return DefaultHealthAddr
	}
	return *c.HealthAddr
}

// GetMonitorAddr returns the debug HTTP listen address; empty disables it.
func (c *Config) GetMonitorAddr() string {
	if c.MonitorAddr == nil {
		return DefaultMonitorAddr
	}
	return *c.MonitorAddr
}

// PortOf returns the numeric port of a host:port address.
func PortOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%w: invalid port %q in %q", ErrInvalidConfiguration, p, addr)
	}
	return port, nil
}
