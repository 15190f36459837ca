package cli

import (
	"bytes"
	"context"
	"net"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-udp/server"
)

func execute(ctx context.Context, args ...string) (string, error) {
	cmd := NewRootCommand()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetOut(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stderr.String(), err
}

func TestMalformedArgumentsPrintDiagnostic(t *testing.T) {
	out, err := execute(context.Background(), "client", "localhost", "port", "p", "1", "1")
	require.Error(t, err)
	assert.Contains(t, out, `invalid value "port" for PORT`)

	out, err = execute(context.Background(), "server", "1")
	require.Error(t, err)
	assert.Contains(t, out, "accepts between 2 and 3 arg(s)")

	out, err = execute(context.Background(), "server", "0", "1", "no marker")
	require.Error(t, err)
	assert.Contains(t, out, "marker")
}

func TestClientCommandAgainstServer(t *testing.T) {
	s := server.NewBlocking()
	require.NoError(t, s.Start(2, map[int]string{0: "Hello, $"}))
	defer s.Close()
	port := strconv.Itoa(s.Ports()[0])

	variants := [][]string{nil}
	if runtime.GOOS == "linux" {
		variants = append(variants, []string{"--nonblocking"})
	}
	for _, extra := range variants {
		args := append([]string{"client", "127.0.0.1", port, "req", "3", "2", "--timeout", "100ms"}, extra...)
		_, err := execute(context.Background(), args...)
		require.NoError(t, err, "args %v", args)
	}
}

func TestRunServerStopsOnCancel(t *testing.T) {
	pc, err := net.ListenPacket("udp4", ":0")
	require.NoError(t, err)
	port := pc.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, pc.Close())

	opts := NewServerOptions()
	require.NoError(t, opts.Complete([]string{strconv.Itoa(port), "1", "$"}))
	require.NoError(t, opts.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunServer(ctx, opts, testr.New(t)) }()

	conn, err := net.Dial("udp4", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()
	buf := make([]byte, 64)
	require.Eventually(t, func() bool {
		_, _ = conn.Write([]byte("ping"))
		_ = conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n, err := conn.Read(buf)
		return err == nil && string(buf[:n]) == "ping"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
