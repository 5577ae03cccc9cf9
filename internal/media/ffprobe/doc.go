// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns a Result; CheckReel is the post-encode
// sanity check applied to every reel before upload.
package ffprobe
