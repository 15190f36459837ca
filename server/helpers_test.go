package server_test

import (
	"net"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// collector records verified responses per worker.
type collector struct {
	mu        sync.Mutex
	responses map[int][]string
}

func newCollector() *collector {
	return &collector{responses: map[int][]string{}}
}

func (c *collector) observe(worker, _ int, response []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[worker] = append(c.responses[worker], string(response))
}

func (c *collector) get(worker int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responses[worker]
}

// occupy binds a wildcard IPv4 port without SO_REUSEADDR.
func occupy(t *testing.T) int {
	t.Helper()
	pc, err := net.ListenPacket("udp4", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })
	return pc.LocalAddr().(*net.UDPAddr).Port
}

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	pc, err := net.ListenPacket("udp4", ":0")
	require.NoError(t, err)
	defer pc.Close()
	return pc.LocalAddr().(*net.UDPAddr).Port
}

// exchange sends req from a fresh socket to port and returns the answer.
func exchange(t *testing.T, port int, req string) string {
	t.Helper()
	conn, err := net.Dial("udp4", net.JoinHostPort("127.0.0.1", itoa(port)))
	require.NoError(t, err)
	defer conn.Close()
	buf := make([]byte, 256)
	for attempt := 0; attempt < 20; attempt++ {
		_, err = conn.Write([]byte(req))
		require.NoError(t, err)
		require.NoError(t, conn.SetReadDeadline(deadline()))
		n, err := conn.Read(buf)
		if err == nil {
			return string(buf[:n])
		}
	}
	t.Fatalf("no answer for %q on port %d", req, port)
	return ""
}

func openFds(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	require.NoError(t, err)
	return len(entries)
}
