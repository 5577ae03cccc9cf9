// Package retry re-runs fallible operations with exponential backoff.
//
// Only failures classified as transient are retried: network timeouts,
// transport errors, throttling and server faults. Errors tagged with a
// permanent services marker (challenge, credentials, rate limit, validation)
// return immediately so an account problem is never hammered.
package retry
