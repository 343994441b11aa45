package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAvailability_Record(t *testing.T) {
	clock := newFakeClock()
	a := NewAvailability(time.Minute, clock)

	state, checked := a.Snapshot()
	assert.Equal(t, StateUnknown, state)
	assert.True(t, checked.IsZero())

	a.Record(false)
	state, checked = a.Snapshot()
	assert.Equal(t, StateUnavailable, state)
	assert.Equal(t, clock.Now(), checked)

	clock.Advance(time.Second)
	a.Record(true)
	state, checked = a.Snapshot()
	assert.Equal(t, StateAvailable, state)
	assert.Equal(t, clock.Now(), checked)
}

func TestSelectChannel(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ttl := 60 * time.Second

	tests := []struct {
		name       string
		configured bool
		state      State
		checked    time.Time
		want       Channel
	}{
		{"unknown state probes binding", true, StateUnknown, time.Time{}, ChannelDirectBinding},
		{"available uses binding", true, StateAvailable, now.Add(-time.Hour), ChannelDirectBinding},
		{"unavailable within ttl skips binding", true, StateUnavailable, now.Add(-10 * time.Second), ChannelHTTP},
		{"unavailable at ttl re-probes", true, StateUnavailable, now.Add(-ttl), ChannelDirectBinding},
		{"unavailable past ttl re-probes", true, StateUnavailable, now.Add(-61 * time.Second), ChannelDirectBinding},
		{"unconfigured binding uses http", false, StateAvailable, now, ChannelHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectChannel(tt.configured, tt.state, tt.checked, ttl, now))
		})
	}
}
