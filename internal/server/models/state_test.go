package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateUploading, StatePending, true},
		{StateUploading, StateFailed, true},
		{StatePending, StateProcessing, true},
		{StatePending, StateFailed, true},
		{StateProcessing, StateSuccess, true},
		{StateProcessing, StateFailed, true},
		{StateProcessing, StateProcessing, true},
		{StateSuccess, StateSuccess, true},
		{StateFailed, StateFailed, true},

		{StateSuccess, StatePending, false},
		{StateSuccess, StateFailed, false},
		{StateFailed, StateSuccess, false},
		{StateFailed, StateUploading, false},
		{StateProcessing, StatePending, false},
		{StatePending, StateUploading, false},
		{StateUploading, State("archived"), false},
		{State("archived"), StatePending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestState_NoTransitionEverRegresses(t *testing.T) {
	for _, from := range AllStates() {
		for _, to := range AllStates() {
			if from.CanTransition(to) && from != to {
				assert.Greater(t, stateRank[to], stateRank[from], "%s -> %s", from, to)
			}
		}
	}
}

func TestState_Predicates(t *testing.T) {
	assert.True(t, StateSuccess.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateProcessing.Terminal())
	assert.True(t, StatePending.Active())
	assert.True(t, StateProcessing.Active())
	assert.False(t, StateUploading.Active())

	s, ok := ParseState("processing")
	assert.True(t, ok)
	assert.Equal(t, StateProcessing, s)
	_, ok = ParseState("done")
	assert.False(t, ok)
}
