// Package main hosts the skyreel CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the posting scheduler, performs one-shot
// posts and previews, manages the Instagram session, and reports status and
// post history. It centralizes configuration resolution and logger setup so
// subcommands only wire internal packages together.
package main
