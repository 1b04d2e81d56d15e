package types

import "time"

// Milliseconds since the unix epoch
type UnixMilli int64

func NewUnixMilli(t time.Time) UnixMilli {
	return UnixMilli(t.UnixMilli())
}
