package transport

import (
	"strconv"
	"time"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

// timeNow returns a deadline in the past, used to unblock a pending read
// immediately when the caller's context is cancelled.
func timeNow() time.Time {
	return time.Now().Add(-time.Second)
}
