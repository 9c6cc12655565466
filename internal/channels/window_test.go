package channels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceWindowEvenSplit(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(90 * 24 * time.Hour)

	windows := SliceWindow(start, end, 30*24*time.Hour)

	require.Len(t, windows, 3)
	assert.Equal(t, start, windows[0].Start)
	assert.Equal(t, start.Add(30*24*time.Hour), windows[0].End)
	assert.Equal(t, windows[0].End, windows[1].Start)
	assert.Equal(t, end, windows[2].End)
}

func TestSliceWindowTruncatesFinal(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(45 * 24 * time.Hour)

	windows := SliceWindow(start, end, 30*24*time.Hour)

	require.Len(t, windows, 2)
	assert.Equal(t, start.Add(30*24*time.Hour), windows[1].Start)
	assert.Equal(t, end, windows[1].End)
	assert.True(t, windows[1].End.Sub(windows[1].Start) < 30*24*time.Hour)
}

func TestSliceWindowSingleShortRange(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	windows := SliceWindow(start, end, 30*24*time.Hour)

	require.Len(t, windows, 1)
	assert.Equal(t, start, windows[0].Start)
	assert.Equal(t, end, windows[0].End)
}

func TestSliceWindowInvalidRange(t *testing.T) {
	now := time.Now()

	assert.Nil(t, SliceWindow(now, now, time.Hour))
	assert.Nil(t, SliceWindow(now, now.Add(-time.Hour), time.Hour))
	assert.Nil(t, SliceWindow(now, now.Add(time.Hour), 0))
}
