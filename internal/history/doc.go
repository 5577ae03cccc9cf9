// Package history records every attempt to post a reel in a SQLite
// database (modernc.org/sqlite, no cgo).
//
// Runs are created in the running state when a post starts and finished as
// posted or failed. The scheduler consults PostedOn to avoid posting twice
// on the same day, and the CLI renders Recent as a table.
package history
