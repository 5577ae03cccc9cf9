// Package textutil provides filename sanitization helpers used when naming
// archived reels.
package textutil
