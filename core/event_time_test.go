package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundedOutOfOrderness(t *testing.T) {
	state := NewWatermarkState()
	assigner := &BoundedOutOfOrderness[string]{MaxOutOfOrderness: 10}

	ts, wm, ok := assigner.AssignTimestamp("a", 100, &state)
	assert.Equal(t, int64(100), ts)
	assert.True(t, ok)
	assert.Equal(t, int64(90), wm.Timestamp)

	// A late record does not move the watermark backwards.
	ts, _, ok = assigner.AssignTimestamp("b", 95, &state)
	assert.Equal(t, int64(95), ts)
	assert.False(t, ok)

	_, wm, ok = assigner.AssignTimestamp("c", 120, &state)
	assert.True(t, ok)
	assert.Equal(t, int64(110), wm.Timestamp)
}

func TestBoundedOutOfOrdernessIgnoresMissingTimestamps(t *testing.T) {
	state := NewWatermarkState()
	assigner := &BoundedOutOfOrderness[string]{MaxOutOfOrderness: 10}

	ts, _, ok := assigner.AssignTimestamp("a", NoTimestamp, &state)
	assert.Equal(t, NoTimestamp, ts)
	assert.False(t, ok)
}

func TestAscendingTimestamps(t *testing.T) {
	state := NewWatermarkState()
	assigner := &AscendingTimestamps[string]{}

	_, wm, ok := assigner.AssignTimestamp("a", 5, &state)
	assert.True(t, ok)
	assert.Equal(t, int64(4), wm.Timestamp)

	_, wm, ok = assigner.AssignTimestamp("b", 7, &state)
	assert.True(t, ok)
	assert.Equal(t, int64(6), wm.Timestamp)

	_, _, ok = assigner.AssignTimestamp("c", 7, &state)
	assert.False(t, ok)
}
