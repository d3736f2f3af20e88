package clock

import "time"

// SystemClock reports wall-clock time in UTC, truncated to the millisecond
// precision the persisted snapshot keeps.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
