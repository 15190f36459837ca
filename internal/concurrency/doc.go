// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives shared by the engines: a bounded task executor that
// keeps computation off reactor goroutines, and a lock-free MPMC queue used to
// hand completed work back to a reactor without blocking it.
package concurrency
