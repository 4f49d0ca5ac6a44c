// Package tracing is a thin wrapper around OpenTelemetry so that the rest of
// the code-base can emit spans without importing the upstream packages
// directly. Initialisation is optional; before Init is called all spans are
// no-ops.
package tracing
