package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Frame constants.
const (
	// FrameLengthSize is the size of each length prefix in bytes.
	FrameLengthSize = 4

	// DefaultMaxHeader bounds the JSON header section.
	DefaultMaxHeader = 16 * 1024

	// DefaultMaxBody bounds the encoded image section (32MB).
	DefaultMaxBody = 32 * 1024 * 1024

	// HardMaxBody is the ceiling even when configured higher (256MB).
	HardMaxBody = 256 * 1024 * 1024
)

// Frame errors.
var (
	ErrFrameEmpty    = errors.New("protocol: zero-length frame section")
	ErrFrameTooLarge = errors.New("protocol: frame section too large")
)

// FrameLimits bounds the two sections of an image frame.
type FrameLimits struct {
	MaxHeader uint32
	MaxBody   uint32
}

// DefaultFrameLimits returns the default limits.
func DefaultFrameLimits() FrameLimits {
	return FrameLimits{MaxHeader: DefaultMaxHeader, MaxBody: DefaultMaxBody}
}

// normalized fills zero limits with defaults and caps the body limit.
func (l FrameLimits) normalized() FrameLimits {
	if l.MaxHeader == 0 {
		l.MaxHeader = DefaultMaxHeader
	}
	if l.MaxBody == 0 {
		l.MaxBody = DefaultMaxBody
	}
	if l.MaxBody > HardMaxBody {
		l.MaxBody = HardMaxBody
	}
	return l
}

// ImageHeader carries placement metadata for a transferred image.
type ImageHeader struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Token  string  `json:"token"`
}

// WriteImageFrame writes header and body as one frame.
func WriteImageFrame(w io.Writer, h ImageHeader, body []byte) error {
	if h.ID == "" {
		return fmt.Errorf("%w: image header without id", ErrMalformed)
	}
	if len(body) == 0 {
		return ErrFrameEmpty
	}
	if uint64(len(body)) > HardMaxBody {
		return ErrFrameTooLarge
	}
	hdr, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("protocol: encode image header: %w", err)
	}

	buf := make([]byte, 0, 2*FrameLengthSize+len(hdr)+len(body))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(hdr)))
	buf = append(buf, hdr...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(body)))
	buf = append(buf, body...)
	_, err = w.Write(buf)
	return err
}

// ReadImageHeader reads the length-prefixed header section. A zero or
// oversized length returns before any further byte is read.
func ReadImageHeader(r io.Reader, limits FrameLimits) (ImageHeader, error) {
	limits = limits.normalized()
	raw, err := readSection(r, limits.MaxHeader)
	if err != nil {
		return ImageHeader{}, err
	}
	var h ImageHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return ImageHeader{}, fmt.Errorf("%w: image header: %v", ErrMalformed, err)
	}
	if h.ID == "" {
		return ImageHeader{}, fmt.Errorf("%w: image header without id", ErrMalformed)
	}
	return h, nil
}

// ReadImageBody reads the length-prefixed body section.
func ReadImageBody(r io.Reader, limits FrameLimits) ([]byte, error) {
	limits = limits.normalized()
	return readSection(r, limits.MaxBody)
}

// ReadImageFrame reads a complete frame.
func ReadImageFrame(r io.Reader, limits FrameLimits) (ImageHeader, []byte, error) {
	h, err := ReadImageHeader(r, limits)
	if err != nil {
		return ImageHeader{}, nil, err
	}
	body, err := ReadImageBody(r, limits)
	if err != nil {
		return ImageHeader{}, nil, err
	}
	return h, body, nil
}

func readSection(r io.Reader, max uint32) ([]byte, error) {
	var prefix [FrameLengthSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n == 0 {
		return nil, ErrFrameEmpty
	}
	if n > max {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}
