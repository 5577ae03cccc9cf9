// Package services defines shared error markers and context helpers used by
// every stage of the posting pipeline.
//
// Stages wrap failures with Wrap and one of the sentinel markers so the
// orchestrator, the retry policy and the history store can classify them
// without string matching. Context helpers stamp run IDs, stage names and
// triggers for structured logging.
package services
