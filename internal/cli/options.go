// File: internal/cli/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Command-line options for the hello command.

package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/momentics/hioload-udp/affinity"
	"github.com/momentics/hioload-udp/internal/logging"
	"github.com/momentics/hioload-udp/protocol"
)

// CommonOptions are shared by both subcommands.
type CommonOptions struct {
	Nonblocking  bool // Use the selector-driven engine.
	LogVerbosity int  // Number for the log level verbosity.
	Development  bool // Human-readable console logs.
}

func (o *CommonOptions) addFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Nonblocking, "nonblocking", o.Nonblocking,
		"Use the single-loop non-blocking engine.")
	fs.IntVarP(&o.LogVerbosity, "v", "v", o.LogVerbosity,
		"Number for the log level verbosity.")
	fs.BoolVar(&o.Development, "dev-logs", o.Development,
		"Write human-readable console logs.")
}

func (o *CommonOptions) validate() error {
	if o.LogVerbosity < 0 {
		return fmt.Errorf("invalid value %d for flag %q: must be >= 0", o.LogVerbosity, "v")
	}
	return nil
}

// Logging returns the logger options.
func (o *CommonOptions) Logging() logging.Options {
	return logging.Options{Verbosity: o.LogVerbosity, Development: o.Development}
}

// ClientOptions configure `hello client`.
type ClientOptions struct {
	CommonOptions

	Host     string
	Port     int
	Prefix   string
	Threads  int
	Requests int
	Timeout  time.Duration // Wait before a request is resent.
}

// NewClientOptions returns ClientOptions initialized with default values.
func NewClientOptions() *ClientOptions {
	return &ClientOptions{
		CommonOptions: CommonOptions{LogVerbosity: logging.DEFAULT},
		Timeout:       protocol.DefaultTimeout,
	}
}

// AddFlags binds the options to fs.
func (o *ClientOptions) AddFlags(fs *pflag.FlagSet) {
	o.addFlags(fs)
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout,
		"How long a request waits for its answer before it is resent.")
}

// Complete fills the positional arguments HOST PORT PREFIX THREADS REQUESTS.
func (o *ClientOptions) Complete(args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("expected 5 arguments (HOST PORT PREFIX THREADS REQUESTS), got %d", len(args))
	}
	o.Host, o.Prefix = args[0], args[2]
	var err error
	if o.Port, err = parseInt("PORT", args[1]); err != nil {
		return err
	}
	if o.Threads, err = parseInt("THREADS", args[3]); err != nil {
		return err
	}
	if o.Requests, err = parseInt("REQUESTS", args[4]); err != nil {
		return err
	}
	return nil
}

// Validate checks the options for invalid values.
func (o *ClientOptions) Validate() error {
	if o.Host == "" {
		return fmt.Errorf("HOST must not be empty")
	}
	if err := validatePort(o.Port, false); err != nil {
		return err
	}
	if o.Threads < 1 {
		return fmt.Errorf("invalid value %d for THREADS: must be >= 1", o.Threads)
	}
	if o.Requests < 0 {
		return fmt.Errorf("invalid value %d for REQUESTS: must be >= 0", o.Requests)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("invalid value %s for flag %q: must be positive", o.Timeout, "timeout")
	}
	return o.validate()
}

// ServerOptions configure `hello server`.
type ServerOptions struct {
	CommonOptions

	Port        int
	Threads     int
	Template    string
	MetricsAddr string        // Serve /metrics here when set.
	PollTimeout time.Duration // Selector wait bound of the non-blocking engine.
	CPU         int           // Pin the non-blocking loop to this CPU; -1 disables.
}

// NewServerOptions returns ServerOptions initialized with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		CommonOptions: CommonOptions{LogVerbosity: logging.DEFAULT},
		Template:      protocol.DefaultTemplate,
		PollTimeout:   protocol.DefaultTimeout,
		CPU:           affinity.Any,
	}
}

// AddFlags binds the options to fs.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.addFlags(fs)
	fs.StringVar(&o.MetricsAddr, "metrics-addr", o.MetricsAddr,
		"Address to serve Prometheus metrics on, e.g. :9090. Disabled when empty.")
	fs.DurationVar(&o.PollTimeout, "poll-timeout", o.PollTimeout,
		"Selector wait bound of the non-blocking engine.")
	fs.IntVar(&o.CPU, "cpu", o.CPU,
		"Pin the non-blocking loop thread to this CPU. -1 disables pinning.")
}

// Complete fills the positional arguments PORT THREADS [TEMPLATE].
func (o *ServerOptions) Complete(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("expected 2 or 3 arguments (PORT THREADS [TEMPLATE]), got %d", len(args))
	}
	var err error
	if o.Port, err = parseInt("PORT", args[0]); err != nil {
		return err
	}
	if o.Threads, err = parseInt("THREADS", args[1]); err != nil {
		return err
	}
	if len(args) == 3 {
		o.Template = args[2]
	}
	return nil
}

// Validate checks the options for invalid values.
func (o *ServerOptions) Validate() error {
	if err := validatePort(o.Port, true); err != nil {
		return err
	}
	if o.Threads < 1 {
		return fmt.Errorf("invalid value %d for THREADS: must be >= 1", o.Threads)
	}
	if _, err := protocol.ParseTemplate(o.Template); err != nil {
		return err
	}
	if o.PollTimeout <= 0 {
		return fmt.Errorf("invalid value %s for flag %q: must be positive", o.PollTimeout, "poll-timeout")
	}
	if o.CPU < affinity.Any {
		return fmt.Errorf("invalid value %d for flag %q: must be >= -1", o.CPU, "cpu")
	}
	return o.validate()
}

func parseInt(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s: not an integer", s, name)
	}
	return v, nil
}

func validatePort(port int, allowZero bool) error {
	low := 1
	if allowZero {
		low = 0
	}
	if port < low || port > 65535 {
		return fmt.Errorf("invalid value %d for PORT: must be between %d and 65535", port, low)
	}
	return nil
}
