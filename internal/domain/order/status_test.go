package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusPreparing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusServed, false},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusPreparing, true},
		{StatusConfirmed, StatusReady, true},
		{StatusConfirmed, StatusPending, false},
		{StatusPreparing, StatusServed, true},
		{StatusPreparing, StatusCompleted, false},
		{StatusReady, StatusCompleted, true},
		{StatusReady, StatusCancelled, true},
		{StatusServed, StatusCompleted, true},
		{StatusServed, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusServed.Terminal())
}

func TestParseType_LegacySpelling(t *testing.T) {
	typ, err := ParseType("TAKE_AWAY")
	require.NoError(t, err)
	assert.Equal(t, TypeTakeaway, typ)

	typ, err = ParseType("TAKEAWAY")
	require.NoError(t, err)
	assert.Equal(t, TypeTakeaway, typ)
}

func TestParseType_Unknown(t *testing.T) {
	_, err := ParseType("DRIVE_THRU")
	require.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("PREPARING")
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, s)

	_, err = ParseStatus("preparing")
	require.Error(t, err)
}
