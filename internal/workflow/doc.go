// Package workflow runs one posting pass: log in, pick content, render the
// reel, validate it, upload it, archive it and record the outcome.
//
// Runner owns the long-lived clients. Initialize builds them from config,
// EnsureProfileImage makes sure the frame has an avatar to draw, and
// PostDailyReel executes the pipeline. Each stage is fail-fast: the first
// failure is recorded in history, reported through notifications and
// returned to the caller, and the remaining stages are skipped. A failed run
// never affects the next one; the scheduler in internal/daemon keeps going.
package workflow
