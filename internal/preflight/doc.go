// Package preflight provides readiness checks for the filesystem paths
// and external engines a cover run depends on.
//
// These checks run in two contexts:
//   - The generate command calls RunAll before starting a run. If any
//     check fails, the run aborts before the download begins rather
//     than failing half an hour in.
//   - The CLI "coverforge deps" command uses CheckEngines to display
//     engine availability.
package preflight
