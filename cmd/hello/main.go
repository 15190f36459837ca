// File: cmd/hello/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hello runs the Hello protocol client or server.
//
//	hello client HOST PORT PREFIX THREADS REQUESTS [--nonblocking] [--timeout 500ms] [-v N]
//	hello server PORT THREADS [TEMPLATE] [--nonblocking] [--metrics-addr :9090] [-v N]
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/hioload-udp/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
