// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for the engines.
//
// Provides concurrent-safe state handling primitives including:
//   - Per-engine Prometheus collectors on an instance-scoped registry
//   - Named debug probes returning live engine state snapshots
package control
