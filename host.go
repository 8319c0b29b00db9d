package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/actuator"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/config"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/dispatch"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/gesture"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/imagechan"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/metrics"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/transport"
)

// pointerQueue bounds pointer events waiting for the actuator.
const pointerQueue = 64

func newHostCmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "host",
		Short: "Accept a pad, drive the cursor and mirror the canvas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			return runHost(cmd.Context(), cfg, logger)
		},
	}
}

func runHost(parent context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signalContext(parent)
	w := &workers{log: logger}
	defer w.Wait()
	defer stop()

	session := cfg.Session()
	var m *metrics.Metrics
	if cfg.Metrics {
		m = metrics.New()
	}

	outbox := transport.NewOutbox(transport.DefaultOutboxSize, m, logger)
	w.Go("outbox", func() error { outbox.Run(ctx); return nil })

	// The pad's datagram address is learned from its first accepted message.
	var link *transport.UDPLink
	inboxCfg := cfg.Inbox()
	inboxCfg.OnPeer = func(from net.Addr) { link.SetTarget(from) }
	inbox := transport.NewInbox(inboxCfg, session, m, logger)

	udp, err := transport.ListenUDP(fmt.Sprintf(":%d", cfg.Port), inbox, logger)
	if err != nil {
		return err
	}
	defer udp.Close()
	local := session
	local.Host = ""
	link, err = transport.NewUDPLink(udp.Conn(), outbox, local, m, logger)
	if err != nil {
		return err
	}
	w.Go("udp", func() error { return udp.Run(ctx) })

	hub := transport.NewWSHub(inbox, session, m, logger)
	var metricsHandler http.Handler
	if m != nil {
		metricsHandler = m.Handler()
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ControlPort),
		Handler:           hub.Router(metricsHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}
	w.Go("control", func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control server: %w", err)
		}
		return nil
	})
	context.AfterFunc(ctx, func() {
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	})

	images, err := imagechan.Listen(fmt.Sprintf(":%d", cfg.ImagePort), cfg.Receiver(), session, m, logger)
	if err != nil {
		return err
	}
	w.Go("images", func() error { return images.Run(ctx) })

	if mdnsServer, err := transport.Advertise("", session); err != nil {
		logger.Warn("mDNS advertise failed, pads need --host", "err", err)
	} else {
		defer mdnsServer.Shutdown()
	}

	pointer := make(chan protocol.PointerEvent, pointerQueue)
	inj := newInjector(cfg, logger)
	defer inj.Close()
	act := actuator.New(cfg.Actuator, inj, logger)
	w.Go("actuator", func() error {
		if err := act.Run(ctx, pointer); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	peer := func() (protocol.Session, bool) {
		t := link.Target()
		if t == nil {
			return protocol.Session{}, false
		}
		host, _, err := net.SplitHostPort(t.String())
		if err != nil {
			return protocol.Session{}, false
		}
		s := session
		s.Host = host
		return s, true
	}
	side := newCanvasSide(canvasOptions{
		Title:    "notemirror host",
		Headless: cfg.Headless,
		Gesture:  cfg.Gesture,
		Mode:     gesture.ModeDraw,
		Out:      transport.Senders{link, hub},
		Pointer:  pointer,
		Peer:     peer,
		Images:   imagechan.NewSender(cfg.Sender(), logger),
	}, logger)

	ip, err := transport.OutgoingIP()
	if err != nil {
		ip = "127.0.0.1"
	}
	logger.Info("host ready", "ip", ip, "port", cfg.Port, "image_port", cfg.ImagePort,
		"control_port", cfg.ControlPort, "transport", cfg.Transport, "bounds", act.Bounds())
	side.setStatus(fmt.Sprintf("Waiting for pad on %s:%d", ip, cfg.Port))

	side.run(ctx, stop, dispatch.Inputs{Messages: inbox.Messages(), Layers: images.Layers()}, w)
	return nil
}

// newInjector prefers a uinput device and falls back to logging.
func newInjector(cfg config.Config, logger *slog.Logger) actuator.Injector {
	u, err := actuator.NewUinput("notemirror pointer", cfg.Actuator.Warp, cfg.Actuator.Bounds(), logger)
	if err != nil {
		logger.Warn("uinput unavailable, pointer events are only logged", "err", err)
		return actuator.NewLogInjector(logger)
	}
	return u
}
