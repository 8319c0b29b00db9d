// Package config assembles runtime settings from defaults, an optional YAML
// file, NOTEMIRROR_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/actuator"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/gesture"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/imagechan"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/transport"
)

// Transports.
const (
	TransportUDP = "udp"
	TransportWS  = "ws"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NOTEMIRROR_"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	// Host is the host the pad connects to. Empty means discover via mDNS.
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	ImagePort   int    `yaml:"image_port"`
	ControlPort int    `yaml:"control_port"`
	Token       string `yaml:"token"`
	Transport   string `yaml:"transport"`

	LogLevel string `yaml:"log_level"`
	Metrics  bool   `yaml:"metrics"`

	RatePerSec float64 `yaml:"rate_per_sec"`
	RateBurst  int     `yaml:"rate_burst"`
	QueueSize  int     `yaml:"queue_size"`

	MaxImageDimension int `yaml:"max_image_dimension"`
	MaxImageBytes     int `yaml:"max_image_bytes"`

	Mode        string `yaml:"mode"`
	TouchDevice string `yaml:"touch_device"`
	PenDevice   string `yaml:"pen_device"`
	Headless    bool   `yaml:"headless"`
	// ScreenWidth and ScreenHeight are the pad panel in pixels; touch axes
	// are scaled onto it.
	ScreenWidth  int `yaml:"screen_width"`
	ScreenHeight int `yaml:"screen_height"`

	Actuator actuator.Config `yaml:"actuator"`
	Gesture  gesture.Config  `yaml:"gesture"`
}

// Default returns the built-in settings.
func Default() Config {
	inbox := transport.DefaultInboxConfig()
	return Config{
		Port:              9000,
		ImagePort:         9001,
		ControlPort:       9002,
		Transport:         TransportUDP,
		LogLevel:          "info",
		RatePerSec:        inbox.RatePerSec,
		RateBurst:         inbox.Burst,
		QueueSize:         inbox.QueueSize,
		MaxImageDimension: imagechan.DefaultMaxDimension,
		MaxImageBytes:     protocol.DefaultMaxBody,
		Mode:              "pointer",
		ScreenWidth:       1440,
		ScreenHeight:      2960,
		Actuator:          actuator.Config{Sensitivity: 1},
		Gesture:           gesture.DefaultConfig(),
	}
}

// LoadFile overlays a YAML file on cfg. Keys absent from the file keep
// their current values.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays NOTEMIRROR_* variables on cfg.
func ApplyEnv(cfg *Config) {
	cfg.Host = getenvDefault(EnvPrefix+"HOST", cfg.Host)
	cfg.Port = getenvIntDefault(EnvPrefix+"PORT", cfg.Port)
	cfg.ImagePort = getenvIntDefault(EnvPrefix+"IMAGE_PORT", cfg.ImagePort)
	cfg.ControlPort = getenvIntDefault(EnvPrefix+"CONTROL_PORT", cfg.ControlPort)
	cfg.Token = getenvDefault(EnvPrefix+"TOKEN", cfg.Token)
	cfg.Transport = getenvDefault(EnvPrefix+"TRANSPORT", cfg.Transport)
	cfg.LogLevel = getenvDefault(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)
	cfg.Metrics = getenvBoolDefault(EnvPrefix+"METRICS", cfg.Metrics)
	cfg.RatePerSec = getenvFloatDefault(EnvPrefix+"RATE_PER_SEC", cfg.RatePerSec)
	cfg.RateBurst = getenvIntDefault(EnvPrefix+"RATE_BURST", cfg.RateBurst)
	cfg.MaxImageDimension = getenvIntDefault(EnvPrefix+"MAX_IMAGE_DIMENSION", cfg.MaxImageDimension)
	cfg.MaxImageBytes = getenvIntDefault(EnvPrefix+"MAX_IMAGE_BYTES", cfg.MaxImageBytes)
	cfg.Mode = getenvDefault(EnvPrefix+"MODE", cfg.Mode)
	cfg.TouchDevice = getenvDefault(EnvPrefix+"TOUCH_DEVICE", cfg.TouchDevice)
	cfg.PenDevice = getenvDefault(EnvPrefix+"PEN_DEVICE", cfg.PenDevice)
	cfg.Headless = getenvBoolDefault(EnvPrefix+"HEADLESS", cfg.Headless)
	cfg.ScreenWidth = getenvIntDefault(EnvPrefix+"SCREEN_WIDTH", cfg.ScreenWidth)
	cfg.ScreenHeight = getenvIntDefault(EnvPrefix+"SCREEN_HEIGHT", cfg.ScreenHeight)
	cfg.Actuator.Sensitivity = getenvFloatDefault(EnvPrefix+"SENSITIVITY", cfg.Actuator.Sensitivity)
	cfg.Actuator.InvertY = getenvBoolDefault(EnvPrefix+"INVERT_Y", cfg.Actuator.InvertY)
	cfg.Actuator.Warp = getenvBoolDefault(EnvPrefix+"CURSOR_WARP", cfg.Actuator.Warp)
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	for name, p := range map[string]int{"port": c.Port, "image_port": c.ImagePort, "control_port": c.ControlPort} {
		if p <= 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("%s %d out of range", name, p))
		}
	}
	if c.ImagePort == c.ControlPort {
		errs = append(errs, fmt.Errorf("image_port and control_port are both %d", c.ImagePort))
	}
	if c.Transport != TransportUDP && c.Transport != TransportWS {
		errs = append(errs, fmt.Errorf("transport %q is not udp or ws", c.Transport))
	}
	if _, err := gesture.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.ScreenWidth <= 0 || c.ScreenHeight <= 0 {
		errs = append(errs, fmt.Errorf("screen %dx%d has no area", c.ScreenWidth, c.ScreenHeight))
	}
	if c.Actuator.Sensitivity <= 0 {
		errs = append(errs, fmt.Errorf("sensitivity %v must be positive", c.Actuator.Sensitivity))
	}
	if c.RatePerSec < 0 {
		errs = append(errs, fmt.Errorf("rate_per_sec %v is negative", c.RatePerSec))
	}
	if c.MaxImageDimension < 16 {
		errs = append(errs, fmt.Errorf("max_image_dimension %d is below 16", c.MaxImageDimension))
	}
	if c.MaxImageBytes <= 0 || c.MaxImageBytes > protocol.HardMaxBody {
		errs = append(errs, fmt.Errorf("max_image_bytes %d out of range", c.MaxImageBytes))
	}
	for i, d := range c.Actuator.Displays {
		if d.Empty() {
			errs = append(errs, fmt.Errorf("display %d has no area", i))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Session is the connection description these settings imply.
func (c Config) Session() protocol.Session {
	return protocol.Session{
		Host:        c.Host,
		Port:        c.Port,
		ImagePort:   c.ImagePort,
		ControlPort: c.ControlPort,
		Token:       c.Token,
	}
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Inbox sizes the inbound datagram path.
func (c Config) Inbox() transport.InboxConfig {
	return transport.InboxConfig{QueueSize: c.QueueSize, RatePerSec: c.RatePerSec, Burst: c.RateBurst}
}

// ImageLimits bounds received image frames.
func (c Config) ImageLimits() protocol.FrameLimits {
	l := protocol.DefaultFrameLimits()
	l.MaxBody = uint32(c.MaxImageBytes)
	return l
}

// Receiver configures the image receiver. Images may be up to twice the
// configured send dimension so peers with different settings interoperate.
func (c Config) Receiver() imagechan.ReceiverConfig {
	r := imagechan.DefaultReceiverConfig()
	r.Limits = c.ImageLimits()
	r.MaxEdge = 2 * c.MaxImageDimension
	return r
}

// Sender configures the image sender.
func (c Config) Sender() imagechan.SenderConfig {
	s := imagechan.DefaultSenderConfig()
	s.MaxDimension = c.MaxImageDimension
	return s
}
