package protocol

import (
	"crypto/subtle"
	"fmt"
	"net"
	"strconv"
)

// Session describes one connection between a pad and a host. It is built at
// connect time and replaced wholesale on reconnect; nothing mutates it.
type Session struct {
	Host        string
	Port        int
	ImagePort   int
	ControlPort int
	Token       string
}

// DatagramAddr is the host:port of the datagram listener.
func (s Session) DatagramAddr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ImageAddr is the host:port of the image receiver.
func (s Session) ImageAddr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.ImagePort))
}

// ControlURL is the WebSocket endpoint served on the control port.
func (s Session) ControlURL() string {
	return fmt.Sprintf("ws://%s/ws", net.JoinHostPort(s.Host, strconv.Itoa(s.ControlPort)))
}

// Accepts reports whether token matches the session token. This is a
// filter against stray traffic, not authentication.
func (s Session) Accepts(token string) bool {
	return subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) == 1
}

// String returns a log-friendly form without the token.
func (s Session) String() string {
	return fmt.Sprintf("%s (image=%d control=%d)", s.DatagramAddr(), s.ImagePort, s.ControlPort)
}
