package collector

import (
	"slices"
	"testing"
)

func TestSeriesTrackerSweep(t *testing.T) {
	t.Parallel()

	var tracker seriesTracker[string]

	var dropped []string

	drop := func(key string) { dropped = append(dropped, key) }

	if got := tracker.sweep(map[string]struct{}{"a": {}, "b": {}}, drop); got != 0 {
		t.Fatalf("first sweep dropped %d", got)
	}

	if got := tracker.sweep(map[string]struct{}{"a": {}, "c": {}}, drop); got != 1 {
		t.Fatalf("second sweep dropped %d want 1", got)
	}

	if !slices.Equal(dropped, []string{"b"}) {
		t.Fatalf("dropped %v", dropped)
	}

	tracker.sweep(map[string]struct{}{}, drop)
	slices.Sort(dropped)

	if !slices.Equal(dropped, []string{"a", "b", "c"}) {
		t.Fatalf("dropped %v", dropped)
	}
}

func TestSeriesTrackerRetain(t *testing.T) {
	t.Parallel()

	var tracker seriesTracker[string]

	var dropped []string

	drop := func(key string) { dropped = append(dropped, key) }

	tracker.sweep(map[string]struct{}{"a": {}, "b": {}}, drop)
	tracker.retain(map[string]struct{}{"c": {}})

	if len(dropped) != 0 {
		t.Fatalf("retain dropped %v", dropped)
	}

	if got := tracker.sweep(map[string]struct{}{"a": {}}, drop); got != 2 {
		t.Fatalf("sweep after retain dropped %d want 2", got)
	}

	slices.Sort(dropped)

	if !slices.Equal(dropped, []string{"b", "c"}) {
		t.Fatalf("dropped %v", dropped)
	}
}

func TestSeriesTrackerRetainOnEmpty(t *testing.T) {
	t.Parallel()

	var tracker seriesTracker[string]

	tracker.retain(map[string]struct{}{"a": {}})

	var dropped []string

	tracker.sweep(map[string]struct{}{}, func(key string) { dropped = append(dropped, key) })

	if !slices.Equal(dropped, []string{"a"}) {
		t.Fatalf("dropped %v", dropped)
	}
}
