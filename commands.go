package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/config"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/export"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/imagechan"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/touch"
)

func newSendImageCmd(flags *config.Flags) *cobra.Command {
	var (
		p    imagechan.Placement
		also []string
	)
	cmd := &cobra.Command{
		Use:   "send-image <file>",
		Short: "Place an image on the peer canvas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			session, err := resolveHost(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			targets := []protocol.Session{session}
			for _, a := range also {
				t, err := imageTarget(session, a)
				if err != nil {
					return err
				}
				targets = append(targets, t)
			}

			img, err := imagechan.LoadFile(args[0])
			if err != nil {
				return err
			}
			sender := imagechan.NewSender(cfg.Sender(), logger)
			layer, body, err := sender.Prepare(img, p)
			if err != nil {
				return err
			}
			for _, t := range targets {
				if err := sender.SendEncoded(cmd.Context(), t, layer, body); err != nil {
					return fmt.Errorf("send to %s: %w", t.ImageAddr(), err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), layer.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.ID, "id", "", "image id; reuse one to replace an image")
	f.Float64Var(&p.At.X, "x", 0, "world x of the top-left corner")
	f.Float64Var(&p.At.Y, "y", 0, "world y of the top-left corner")
	f.Float64Var(&p.Width, "width", 0, "world width (0 keeps the pixel width)")
	f.Float64Var(&p.Height, "height", 0, "world height (0 keeps the pixel height)")
	f.StringSliceVar(&also, "also", nil, "further image endpoints as host:port")
	return cmd
}

// imageTarget is base pointed at another image endpoint.
func imageTarget(base protocol.Session, hostport string) (protocol.Session, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return base, fmt.Errorf("--also %q: %w", hostport, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return base, fmt.Errorf("--also %q: bad port", hostport)
	}
	base.Host = host
	base.ImagePort = n
	return base, nil
}

func newProbeCmd(flags *config.Flags) *cobra.Command {
	var (
		count    int
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Send test datagrams to the host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			session, err := resolveHost(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			addr, err := net.ResolveUDPAddr("udp", session.DatagramAddr())
			if err != nil {
				return err
			}
			conn, err := net.ListenPacket("udp", ":0")
			if err != nil {
				return err
			}
			defer conn.Close()
			data, err := protocol.Encode(protocol.Test{}, session.Token)
			if err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				if i > 0 {
					select {
					case <-cmd.Context().Done():
						return cmd.Context().Err()
					case <-time.After(interval):
					}
				}
				if _, err := conn.WriteTo(data, addr); err != nil {
					return fmt.Errorf("probe %s: %w", addr, err)
				}
				logger.Info("probe sent", "to", addr, "seq", i+1)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 3, "number of probes")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "delay between probes")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <snapshot.json> <out.pdf>",
		Short: "Render a saved canvas to PDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportFile(args[0], args[1])
		},
	}
}

func exportFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	snap, err := state.ReadSnapshot(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := export.WritePDF(out, snap); err != nil {
		out.Close()
		return fmt.Errorf("export %s: %w", dst, err)
	}
	return out.Close()
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List input devices and the ones a pad would pick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devs, err := touch.ListDevices()
			if err != nil {
				return err
			}
			return printDevices(cmd.OutOrStdout(), devs)
		},
	}
}

func printDevices(w io.Writer, devs []touch.DeviceInfo) error {
	touchPath, penPath := touch.PickDevices(devs)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tNAME\tROLE")
	for _, d := range devs {
		path := d.Path()
		if path == "" {
			continue
		}
		role := ""
		switch path {
		case touchPath:
			role = "touch"
		case penPath:
			role = "pen"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", path, d.Name, role)
	}
	return tw.Flush()
}
