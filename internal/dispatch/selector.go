package dispatch

import "time"

// SelectChannel picks the first channel to attempt. The direct binding is
// chosen when it is believed available, or when the last verdict is older than
// ttl and it is due for a re-probe. A binding that is not configured is
// treated like an unavailable one that is never due.
func SelectChannel(bindingConfigured bool, state State, lastCheckedAt time.Time, ttl time.Duration, now time.Time) Channel {
	if !bindingConfigured {
		return ChannelHTTP
	}
	if state == StateAvailable {
		return ChannelDirectBinding
	}
	if now.Sub(lastCheckedAt) >= ttl {
		return ChannelDirectBinding
	}
	return ChannelHTTP
}
