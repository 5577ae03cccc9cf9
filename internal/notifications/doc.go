// Package notifications sends ntfy push notifications about posted reels
// and failed runs. Without a configured topic every call is a no-op.
package notifications
