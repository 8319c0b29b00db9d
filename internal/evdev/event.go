package evdev

import "encoding/binary"

// Event is one input_event without its timestamp.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Kernel struct sizes for input_event, by timeval width.
const (
	EventSize32 = 16
	EventSize64 = 24
)

// Parser splits a byte stream into events. Partial events are kept until
// the rest arrives.
type Parser struct {
	buf  []byte
	size int
}

// NewParser returns a parser for events of size bytes. Zero guesses the size
// from the first chunk.
func NewParser(size int) *Parser {
	return &Parser{size: size}
}

// Feed appends chunk and calls fn for every complete event.
func (p *Parser) Feed(chunk []byte, fn func(Event)) {
	p.buf = append(p.buf, chunk...)
	if p.size == 0 {
		switch {
		case len(p.buf) >= 2*EventSize64 && len(p.buf)%EventSize64 == 0:
			p.size = EventSize64
		case len(p.buf) >= 2*EventSize32 && len(p.buf)%EventSize32 == 0:
			p.size = EventSize32
		case len(p.buf) >= EventSize64:
			p.size = EventSize64
		}
	}
	for p.size != 0 && len(p.buf) >= p.size {
		fn(decode(p.buf[:p.size]))
		p.buf = p.buf[p.size:]
	}
	if len(p.buf) == 0 {
		p.buf = p.buf[:0:0]
	}
}

func decode(raw []byte) Event {
	off := len(raw) - 8
	return Event{
		Type:  binary.LittleEndian.Uint16(raw[off : off+2]),
		Code:  binary.LittleEndian.Uint16(raw[off+2 : off+4]),
		Value: int32(binary.LittleEndian.Uint32(raw[off+4 : off+8])),
	}
}

// AppendEvent appends ev in the size-byte wire layout with a zero timestamp.
// The kernel stamps events written to uinput.
func AppendEvent(dst []byte, size int, ev Event) []byte {
	dst = append(dst, make([]byte, size-8)...)
	dst = binary.LittleEndian.AppendUint16(dst, ev.Type)
	dst = binary.LittleEndian.AppendUint16(dst, ev.Code)
	return binary.LittleEndian.AppendUint32(dst, uint32(ev.Value))
}
