// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides a scriptable in-memory datagram network that answers Hello
// requests and can drop or corrupt responses on demand.
package fake
