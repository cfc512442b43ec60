package collector

import (
	"testing"
	"time"
)

func TestHealthSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	health := NewHealth()

	if healthy, reason := health.Snapshot(5*time.Second, now); healthy || reason != "no successful poll yet" {
		t.Fatalf("fresh tracker: healthy=%v reason=%q", healthy, reason)
	}

	health.MarkPollOK(now.Add(-20 * time.Second))

	if healthy, _ := health.Snapshot(5*time.Second, now); !healthy {
		t.Fatal("poll 20s ago should be within the 30s floor")
	}

	health.MarkPollOK(now.Add(-45 * time.Second))

	if healthy, reason := health.Snapshot(5*time.Second, now); healthy || reason != "last poll too old" {
		t.Fatalf("stale poll: healthy=%v reason=%q", healthy, reason)
	}

	// A long poll delay widens the window to 3*delay.
	if healthy, _ := health.Snapshot(time.Minute, now); !healthy {
		t.Fatal("45s old poll should be healthy with a 1m delay")
	}

	if last, ok := health.LastPollOK(); !ok || !last.Equal(now.Add(-45*time.Second)) {
		t.Fatalf("LastPollOK: %v %v", last, ok)
	}
}
