package state

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	siteID = uuid.NewString()[:8]
	serial uint64
)

func nextSerial() uint64 {
	return atomic.AddUint64(&serial, 1)
}

// SiteID identifies this process in generated ids.
func SiteID() string { return siteID }

// NewStrokeID returns an id that no endpoint has used before.
func NewStrokeID() string {
	return fmt.Sprintf("s-%s-%d-%s", siteID, nextSerial(), uuid.NewString()[:8])
}

// NewImageID returns a fresh image layer id.
func NewImageID() string {
	return "img-" + uuid.NewString()
}
