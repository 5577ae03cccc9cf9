// Package deps checks the external binaries skyreel shells out to.
package deps
