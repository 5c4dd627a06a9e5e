// Package preflight provides readiness checks for the backend, the optional
// Redis bus and the local directories the dialer writes to.
//
// The CLI "dialer status" command runs RunAll and renders each Result.
// The export path calls CheckDirectoryAccess before streaming a file.
package preflight
