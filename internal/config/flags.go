package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags binds command-line overrides. Only flags the user actually set
// take precedence over the file and environment.
type Flags struct {
	path string
	set  Config
}

// AddFlags registers the shared flags as persistent flags on cmd.
func AddFlags(cmd *cobra.Command) *Flags {
	f := &Flags{set: Default()}
	fs := cmd.PersistentFlags()
	fs.StringVarP(&f.path, "config", "c", "", "YAML config file")
	fs.StringVar(&f.set.Host, "host", f.set.Host, "host address (empty: discover via mDNS)")
	fs.IntVarP(&f.set.Port, "port", "p", f.set.Port, "datagram port")
	fs.IntVar(&f.set.ImagePort, "image-port", f.set.ImagePort, "image channel port")
	fs.IntVar(&f.set.ControlPort, "control-port", f.set.ControlPort, "WebSocket and metrics port")
	fs.StringVarP(&f.set.Token, "token", "t", f.set.Token, "shared session token")
	fs.StringVar(&f.set.Transport, "transport", f.set.Transport, "udp or ws")
	fs.StringVar(&f.set.LogLevel, "log-level", f.set.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&f.set.Metrics, "metrics", f.set.Metrics, "serve /metrics on the control port")
	fs.StringVar(&f.set.Mode, "mode", f.set.Mode, "pointer or draw")
	fs.StringVar(&f.set.TouchDevice, "touch-device", f.set.TouchDevice, "evdev touch device")
	fs.StringVar(&f.set.PenDevice, "pen-device", f.set.PenDevice, "evdev pen device")
	fs.BoolVar(&f.set.Headless, "headless", f.set.Headless, "run without a window")
	fs.IntVar(&f.set.ScreenWidth, "screen-width", f.set.ScreenWidth, "pad panel width in pixels")
	fs.IntVar(&f.set.ScreenHeight, "screen-height", f.set.ScreenHeight, "pad panel height in pixels")
	fs.Float64Var(&f.set.Actuator.Sensitivity, "sensitivity", f.set.Actuator.Sensitivity, "cursor speed multiplier")
	fs.BoolVar(&f.set.Actuator.InvertY, "invert-y", f.set.Actuator.InvertY, "invert vertical motion")
	fs.BoolVar(&f.set.Actuator.Warp, "cursor-warp", f.set.Actuator.Warp, "move the cursor with absolute positions")
	fs.IntVar(&f.set.MaxImageDimension, "max-image-dimension", f.set.MaxImageDimension, "longest edge of sent images")
	return f
}

// Load builds the effective configuration for cmd and validates it.
func (f *Flags) Load(cmd *cobra.Command) (Config, error) {
	cfg := Default()
	if f.path != "" {
		if err := LoadFile(&cfg, f.path); err != nil {
			return Config{}, err
		}
	}
	ApplyEnv(&cfg)
	cmd.Flags().Visit(func(fl *pflag.Flag) {
		if apply, ok := flagFields[fl.Name]; ok {
			apply(&cfg, &f.set)
		}
	})
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var flagFields = map[string]func(dst, src *Config){
	"host":                func(d, s *Config) { d.Host = s.Host },
	"port":                func(d, s *Config) { d.Port = s.Port },
	"image-port":          func(d, s *Config) { d.ImagePort = s.ImagePort },
	"control-port":        func(d, s *Config) { d.ControlPort = s.ControlPort },
	"token":               func(d, s *Config) { d.Token = s.Token },
	"transport":           func(d, s *Config) { d.Transport = s.Transport },
	"log-level":           func(d, s *Config) { d.LogLevel = s.LogLevel },
	"metrics":             func(d, s *Config) { d.Metrics = s.Metrics },
	"mode":                func(d, s *Config) { d.Mode = s.Mode },
	"touch-device":        func(d, s *Config) { d.TouchDevice = s.TouchDevice },
	"pen-device":          func(d, s *Config) { d.PenDevice = s.PenDevice },
	"headless":            func(d, s *Config) { d.Headless = s.Headless },
	"screen-width":        func(d, s *Config) { d.ScreenWidth = s.ScreenWidth },
	"screen-height":       func(d, s *Config) { d.ScreenHeight = s.ScreenHeight },
	"sensitivity":         func(d, s *Config) { d.Actuator.Sensitivity = s.Actuator.Sensitivity },
	"invert-y":            func(d, s *Config) { d.Actuator.InvertY = s.Actuator.InvertY },
	"cursor-warp":         func(d, s *Config) { d.Actuator.Warp = s.Actuator.Warp },
	"max-image-dimension": func(d, s *Config) { d.MaxImageDimension = s.MaxImageDimension },
}
