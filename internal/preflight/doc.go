// Package preflight provides readiness checks for the filesystem paths,
// credentials and endpoints skyreel depends on.
//
// These checks run in two contexts:
//   - The workflow runner calls RunAll before each posting run. A failed
//     check aborts the run with a configuration error before any network
//     traffic is sent to the platform.
//   - The CLI "skyreel status" command uses the individual check functions
//     to display readiness.
package preflight
