package collector

// seriesTracker remembers which entities were written by the previous
// successful listing so their series can be dropped once they disappear.
type seriesTracker[K comparable] struct {
	previous map[K]struct{}
}

// sweep calls drop for every key seen last time but absent from current, then
// makes current the new baseline. It returns the number of dropped keys.
func (tracker *seriesTracker[K]) sweep(current map[K]struct{}, drop func(K)) int {
	dropped := 0

	for key := range tracker.previous {
		if _, ok := current[key]; ok {
			continue
		}

		drop(key)

		dropped++
	}

	tracker.previous = current

	return dropped
}

// retain adds current to the baseline without dropping anything. It is used
// when a listing may have left out entities that still exist.
func (tracker *seriesTracker[K]) retain(current map[K]struct{}) {
	if tracker.previous == nil {
		tracker.previous = make(map[K]struct{}, len(current))
	}

	for key := range current {
		tracker.previous[key] = struct{}{}
	}
}
