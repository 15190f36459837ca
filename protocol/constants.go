// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Hello protocol wire constants.

package protocol

import "time"

const (
	// Marker is the substitution position inside a response template.
	Marker = "$"

	// Separator joins worker id and request index.
	Separator = "_"

	// DefaultTemplate is used when the command line omits one.
	DefaultTemplate = "Hello, " + Marker

	// MaxDatagramSize is the largest UDP payload over IPv4.
	MaxDatagramSize = 65507

	// DefaultBufferSize sizes reactor buffers.
	DefaultBufferSize = 1024

	// DefaultTimeout bounds a client receive and a reactor selector wait.
	DefaultTimeout = 500 * time.Millisecond
)
