package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectionRange(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

	from, to, err := detectionRange("2025-03-03", "2025-03-07", []string{"2025-03-10"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, day(3), from)
	assert.Equal(t, day(7), to)

	from, to, err = detectionRange("", "", []string{"2025-03-04", "2025-03-06"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, day(4), from)
	assert.Equal(t, day(6), to)

	from, to, err = detectionRange("2025-03-05", "", nil, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, from, to)

	from, to, err = detectionRange("", "", nil, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, from, to)
	assert.True(t, from.Before(time.Now()))

	_, _, err = detectionRange("03/05/2025", "", nil, time.UTC)
	assert.Error(t, err)
}
