package clock

import "time"

// Clock stamps member createdAt/updatedAt and submission records.
type Clock interface {
	Now() time.Time
}
