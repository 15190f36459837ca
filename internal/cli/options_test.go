package cli

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-udp/protocol"
)

func TestNewOptionsDefaults(t *testing.T) {
	c := NewClientOptions()
	assert.Equal(t, protocol.DefaultTimeout, c.Timeout)
	assert.False(t, c.Nonblocking)
	assert.Equal(t, 0, c.LogVerbosity)

	s := NewServerOptions()
	assert.Equal(t, "Hello, $", s.Template)
	assert.Equal(t, protocol.DefaultTimeout, s.PollTimeout)
	assert.Empty(t, s.MetricsAddr)
}

func TestClientOptionsFlagsAndArgs(t *testing.T) {
	opts := NewClientOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--nonblocking", "--timeout", "250ms", "-v", "2"}))
	require.NoError(t, opts.Complete([]string{"localhost", "8888", "req", "3", "10"}))
	require.NoError(t, opts.Validate())

	assert.True(t, opts.Nonblocking)
	assert.Equal(t, 250*time.Millisecond, opts.Timeout)
	assert.Equal(t, 2, opts.LogVerbosity)
	assert.Equal(t, "localhost", opts.Host)
	assert.Equal(t, 8888, opts.Port)
	assert.Equal(t, "req", opts.Prefix)
	assert.Equal(t, 3, opts.Threads)
	assert.Equal(t, 10, opts.Requests)
}

func TestClientOptionsRejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"port not a number", []string{"h", "http", "p", "1", "1"}},
		{"threads not a number", []string{"h", "1", "p", "x", "1"}},
		{"port out of range", []string{"h", "0", "p", "1", "1"}},
		{"zero threads", []string{"h", "1", "p", "0", "1"}},
		{"negative requests", []string{"h", "1", "p", "1", "-2"}},
		{"empty host", []string{"", "1", "p", "1", "1"}},
		{"too few args", []string{"h", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewClientOptions()
			err := opts.Complete(tt.args)
			if err == nil {
				err = opts.Validate()
			}
			assert.Error(t, err)
		})
	}
}

func TestServerOptionsArgs(t *testing.T) {
	opts := NewServerOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--metrics-addr", ":9090"}))
	require.NoError(t, opts.Complete([]string{"8888", "4"}))
	require.NoError(t, opts.Validate())
	assert.Equal(t, protocol.DefaultTemplate, opts.Template)
	assert.Equal(t, ":9090", opts.MetricsAddr)

	require.NoError(t, opts.Complete([]string{"0", "1", "Hi $!"}))
	require.NoError(t, opts.Validate())
	assert.Equal(t, "Hi $!", opts.Template)

	require.NoError(t, opts.Complete([]string{"8888", "1", "no marker"}))
	assert.Error(t, opts.Validate())

	opts = NewServerOptions()
	opts.LogVerbosity = -1
	require.NoError(t, opts.Complete([]string{"8888", "1"}))
	assert.Error(t, opts.Validate())
}
