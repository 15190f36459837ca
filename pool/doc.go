// Package pool
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity buffer slot pool. Slots are addressed by index and carry an
// ownership flag, so a slot cannot be handed out twice or returned twice.
// The pool capacity is the bound on requests a server holds in flight.
package pool
