package redis

// Key layout shared by every process talking to the store.
const (
	pushCachePrefix    = "push_cache:"
	messageAlertPrefix = "message_alert:"

	// IPRangeReloadChannel carries classifier reload requests.
	IPRangeReloadChannel = "ip_ranges:reload"
)

// PushCacheKey is the bounded message list of a user.
func PushCacheKey(userID string) string {
	return pushCachePrefix + userID
}

// MessageAlertChannel is the pub/sub channel a user's SSE stream listens on.
func MessageAlertChannel(userID string) string {
	return messageAlertPrefix + userID
}
