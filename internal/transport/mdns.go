package transport

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
)

// ServiceType is the DNS-SD type hosts advertise.
const ServiceType = "_notemirror._udp"

// Advertise publishes the host's ports. The token is never advertised.
// Shut the returned server down on exit.
func Advertise(instance string, s protocol.Session) (*mdns.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = host
	}

	info := []string{
		"image=" + strconv.Itoa(s.ImagePort),
		"control=" + strconv.Itoa(s.ControlPort),
	}
	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", s.Port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse looks for hosts for up to timeout and returns their sessions
// without tokens.
func Browse(ctx context.Context, timeout time.Duration) ([]protocol.Session, error) {
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []protocol.Session, 1)
	go func() {
		var found []protocol.Session
		seen := make(map[string]bool)
		for e := range entries {
			s, ok := sessionFromEntry(e)
			if !ok || seen[s.DatagramAddr()] {
				continue
			}
			seen[s.DatagramAddr()] = true
			found = append(found, s)
		}
		done <- found
	}()

	err := mdns.Query(&mdns.QueryParam{
		Service:     ServiceType,
		Domain:      "local",
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	})
	close(entries)
	found := <-done
	if err != nil {
		return found, fmt.Errorf("mdns query: %w", err)
	}
	return found, nil
}

func sessionFromEntry(e *mdns.ServiceEntry) (protocol.Session, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return protocol.Session{}, false
	}
	s := protocol.Session{Host: e.AddrV4.String(), Port: e.Port}
	for _, f := range e.InfoFields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		switch k {
		case "image":
			s.ImagePort = n
		case "control":
			s.ControlPort = n
		}
	}
	return s, true
}
