// Package daemon runs the long-lived posting scheduler.
//
// The Scheduler holds a flock-based single-instance lock, turns the
// configured posting time and weekdays into a cron schedule, and polls the
// clock at a fixed interval. When the next fire time has passed it runs the
// posting pipeline inline, then computes the following fire time. A failed
// run is logged and recorded; it never stops the loop. Cancelling the
// context stops the loop at the next poll boundary.
package daemon
