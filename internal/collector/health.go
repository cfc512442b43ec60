package collector

import (
	"sync/atomic"
	"time"
)

const minHealthWindow = 30 * time.Second

// Health remembers when the last clean poll finished.
type Health struct {
	lastPollSuccessUnixNano atomic.Int64 // 0 means "never"
}

// NewHealth returns a tracker that reports unhealthy until MarkPollOK.
func NewHealth() *Health {
	return &Health{}
}

// MarkPollOK records the time of the latest poll that updated every domain.
func (health *Health) MarkPollOK(now time.Time) {
	health.lastPollSuccessUnixNano.Store(now.UnixNano())
}

// LastPollOK returns the time of the latest clean poll and whether one happened.
func (health *Health) LastPollOK() (time.Time, bool) {
	nanos := health.lastPollSuccessUnixNano.Load()
	if nanos == 0 {
		return time.Time{}, false
	}

	return time.Unix(0, nanos), true
}

// Snapshot returns whether the exporter is healthy and a human reason.
// Healthy if a clean poll happened no longer than max(3*pollDelay, 30s) ago.
func (health *Health) Snapshot(pollDelay time.Duration, now time.Time) (healthy bool, reason string) {
	lastPoll, ok := health.LastPollOK()
	if !ok {
		return false, "no successful poll yet"
	}

	window := max(3*pollDelay, minHealthWindow)

	if now.Sub(lastPoll) > window {
		return false, "last poll too old"
	}

	return true, ""
}
