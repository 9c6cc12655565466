package channels

import "time"

// Window is one bounded sub-interval of an extraction window
type Window struct {
	Start time.Time
	End   time.Time
}

// SliceWindow splits [start, end) into fixed-size sub-windows for upstreams
// that require bounded ranges. The final sub-window is truncated to end.
func SliceWindow(start, end time.Time, size time.Duration) []Window {
	if !start.Before(end) || size <= 0 {
		return nil
	}

	var windows []Window
	for cur := start; cur.Before(end); cur = cur.Add(size) {
		next := cur.Add(size)
		if next.After(end) {
			next = end
		}
		windows = append(windows, Window{Start: cur, End: next})
	}
	return windows
}
