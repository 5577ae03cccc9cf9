// Package fileutil holds the small filesystem helpers the pipeline shares:
// copying and atomic writes, video file validation, and keep-N-newest cleanup
// of working artifacts.
package fileutil
