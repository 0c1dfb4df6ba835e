package clock

import "time"

// Clock provides time to the application.
// Creation timestamps on groups and payments are taken from it.
type Clock interface {
	Now() time.Time
}
