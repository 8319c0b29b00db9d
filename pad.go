package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/config"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/dispatch"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/gesture"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/imagechan"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/touch"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/transport"
)

const (
	browseTimeout = 3 * time.Second
	probeEvery    = 2 * time.Second
	sampleQueue   = 256
)

var errNoHost = errors.New("no host found; pass --host")

func newPadCmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "pad",
		Short: "Read the touch panel and pen and drive the host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			return runPad(cmd.Context(), cfg, logger)
		},
	}
}

// resolveHost returns the configured host, or the first one found over mDNS.
func resolveHost(ctx context.Context, cfg config.Config, logger *slog.Logger) (protocol.Session, error) {
	s := cfg.Session()
	if s.Host != "" {
		return s, nil
	}
	logger.Info("looking for a host", "service", transport.ServiceType)
	found, err := transport.Browse(ctx, browseTimeout)
	if len(found) == 0 {
		if err != nil {
			return s, fmt.Errorf("discover host: %w", err)
		}
		return s, errNoHost
	}
	if len(found) > 1 {
		logger.Warn("several hosts found, using the first", "hosts", len(found))
	}
	h := found[0]
	h.Token = s.Token
	if h.ImagePort == 0 {
		h.ImagePort = s.ImagePort
	}
	if h.ControlPort == 0 {
		h.ControlPort = s.ControlPort
	}
	logger.Info("host found", "session", h)
	return h, nil
}

// hostSession is the session in use. A rediscovered host replaces it.
type hostSession struct {
	mu sync.Mutex
	s  protocol.Session
}

func (h *hostSession) get() (protocol.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.s, true
}

func (h *hostSession) set(s protocol.Session) {
	h.mu.Lock()
	h.s = s
	h.mu.Unlock()
}

func runPad(parent context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signalContext(parent)
	w := &workers{log: logger}
	defer w.Wait()
	defer stop()

	mode, err := gesture.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	session, err := resolveHost(ctx, cfg, logger)
	if err != nil {
		return err
	}

	current := &hostSession{s: session}
	inbox := transport.NewInbox(cfg.Inbox(), session, nil, logger)
	var (
		out transport.Sender
		ws  *transport.WSLink
	)
	switch cfg.Transport {
	case config.TransportWS:
		ws = transport.NewWSLink(session, inbox, nil, logger)
		out = ws
	default:
		// Bind an ephemeral port; the host replies to whatever it sees.
		udp, err := transport.ListenUDP(":0", inbox, logger)
		if err != nil {
			return err
		}
		defer udp.Close()
		outbox := transport.NewOutbox(transport.DefaultOutboxSize, nil, logger)
		w.Go("outbox", func() error { outbox.Run(ctx); return nil })
		link, err := transport.NewUDPLink(udp.Conn(), outbox, session, nil, logger)
		if err != nil {
			return err
		}
		w.Go("udp", func() error { return udp.Run(ctx) })
		out = link
	}
	w.Go("probe", func() error {
		t := time.NewTicker(probeEvery)
		defer t.Stop()
		for {
			out.Send(protocol.Test{})
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
			}
		}
	})

	var layers <-chan state.ImageLayer
	rcv, err := imagechan.Listen(fmt.Sprintf(":%d", cfg.ImagePort), cfg.Receiver(), session, nil, logger)
	if err != nil {
		logger.Warn("image receiver disabled", "err", err)
	} else {
		w.Go("images", func() error { return rcv.Run(ctx) })
		layers = rcv.Layers()
	}

	side := newCanvasSide(canvasOptions{
		Title:       "notemirror pad",
		Headless:    cfg.Headless,
		Gesture:     cfg.Gesture,
		Mode:        mode,
		PenControls: true,
		Out:         out,
		Peer:        current.get,
		Images:      imagechan.NewSender(cfg.Sender(), logger),
	}, logger)
	side.interp.SetViewport(float64(cfg.ScreenWidth), float64(cfg.ScreenHeight))

	samples := make(chan gesture.Sample, sampleQueue)
	if openInputs(ctx, cfg, samples, w, logger) == 0 {
		if cfg.Headless {
			return errors.New("no touch or pen device could be opened")
		}
		logger.Warn("no input devices, only the window accepts input")
	}

	if ws != nil {
		if cfg.Host == "" {
			// A discovered host may come back on another address.
			ws.Rediscover = func(ctx context.Context) (protocol.Session, error) {
				s, err := resolveHost(ctx, cfg, logger)
				if err != nil {
					return s, err
				}
				if prev, _ := current.get(); s != prev {
					current.set(s)
					inbox.SetSession(s)
					if rcv != nil {
						rcv.SetSession(s)
					}
					side.setStatus("Connected to " + s.String())
				}
				return s, nil
			}
		}
		w.Go("ws", func() error { return ws.Run(ctx) })
	}

	side.setStatus("Connected to " + session.String())
	side.run(ctx, stop, dispatch.Inputs{Messages: inbox.Messages(), Layers: layers, Samples: samples}, w)
	return nil
}

// openInputs starts a reader per configured or detected device. A headless
// pad grabs its devices so the phone's own UI does not react as well.
func openInputs(ctx context.Context, cfg config.Config, samples chan<- gesture.Sample, w *workers, logger *slog.Logger) int {
	touchPath, penPath := cfg.TouchDevice, cfg.PenDevice
	if touchPath == "" || penPath == "" {
		devs, err := touch.ListDevices()
		if err != nil {
			logger.Warn("device detection failed", "err", err)
		}
		t, p := touch.PickDevices(devs)
		if touchPath == "" {
			touchPath = t
		}
		if penPath == "" {
			penPath = p
		}
	}

	opened := 0
	seen := make(map[string]bool)
	for _, path := range []string{touchPath, penPath} {
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		dev, err := touch.Open(path, float64(cfg.ScreenWidth), float64(cfg.ScreenHeight), cfg.Headless, logger)
		if err != nil {
			logger.Warn("input device unavailable", "path", path, "err", err)
			continue
		}
		opened++
		w.Go("touch "+path, func() error {
			defer dev.Close()
			return dev.Run(ctx, samples)
		})
	}
	return opened
}
