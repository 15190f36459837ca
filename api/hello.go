// File: api/hello.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Engine contracts for the Hello protocol exerciser.

package api

import "context"

// Client sends numbered requests from threads workers and waits for every
// worker to verify requests responses.
type Client interface {
	Run(ctx context.Context, host string, port int, prefix string, threads, requests int) error
}

// Server answers requests on every port of templates, expanding the
// port's template with the request text. Close is terminal.
type Server interface {
	Start(threads int, templates map[int]string) error
	Close() error
}
