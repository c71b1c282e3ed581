package xtime

import "time"

// UTCNow returns the current time in UTC.
func UTCNow() time.Time {
	return utcNowFunc()
}

// NowMilli returns the current time as unix milliseconds, the wire form
// of every timestamp field.
func NowMilli() int64 {
	return utcNowFunc().UnixMilli()
}

var utcNowFunc = func() time.Time {
	return time.Now().UTC()
}

// SetNowFunc replaces the time source. Only for tests.
func SetNowFunc(f func() time.Time) {
	utcNowFunc = f
}

// ResetNowFunc restores the default time source.
func ResetNowFunc() {
	utcNowFunc = func() time.Time {
		return time.Now().UTC()
	}
}
