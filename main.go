package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/config"
)

// appID identifies the fyne application.
const appID = "io.github.andrewtliem.notemirror"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "notemirror",
		Short:        "Drive a computer from a Galaxy Note9 and share a canvas between them",
		SilenceUsage: true,
	}
	flags := config.AddFlags(root)
	root.AddCommand(
		newHostCmd(flags),
		newPadCmd(flags),
		newSendImageCmd(flags),
		newProbeCmd(flags),
		newExportCmd(),
		newDevicesCmd(),
	)
	return root
}

// setup loads the effective config and installs the process logger.
func setup(cmd *cobra.Command, flags *config.Flags) (config.Config, *slog.Logger, error) {
	cfg, err := flags.Load(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// signalContext is cancelled on interrupt or termination.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// workers runs named long-lived goroutines and waits for them.
type workers struct {
	wg  sync.WaitGroup
	log *slog.Logger
}

func (w *workers) Go(name string, fn func() error) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := fn(); err != nil {
			w.log.Error("worker stopped", "worker", name, "err", err)
			return
		}
		w.log.Debug("worker stopped", "worker", name)
	}()
}

func (w *workers) Wait() { w.wg.Wait() }
