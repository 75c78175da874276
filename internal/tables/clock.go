package tables

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies timestamps for ordering keys, in Unix milliseconds.
type Clock interface {
	NowMillis() int64
}

type systemClock struct{}

func (systemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// newUUID returns a time-ordered UUIDv7 string.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}
