// Package clock abstracts the current time for testability.
package clock

import "time"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}
