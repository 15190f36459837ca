package client_test

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-udp/protocol"
)

// startEcho runs a loopback UDP server answering with raw expanded by the
// request. drop, when set, decides which requests are silently lost.
func startEcho(t *testing.T, raw string, drop func(req string) bool) int {
	t.Helper()
	tpl, err := protocol.ParseTemplate(raw)
	require.NoError(t, err)
	return startResponder(t, func(req string) []string {
		if drop != nil && drop(req) {
			return nil
		}
		return []string{tpl.Expand(req)}
	})
}

// startResponder runs a loopback UDP server sending every datagram
// returned by respond back to the requester.
func startResponder(t *testing.T, respond func(req string) []string) int {
	t.Helper()
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, protocol.DefaultBufferSize)
		for {
			n, from, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			for _, answer := range respond(string(buf[:n])) {
				_, _ = pc.WriteTo([]byte(answer), from)
			}
		}
	}()
	t.Cleanup(func() {
		_ = pc.Close()
		wg.Wait()
	})
	return pc.LocalAddr().(*net.UDPAddr).Port
}

// dropFirst loses the first attempt of every distinct request.
func dropFirst() func(string) bool {
	var mu sync.Mutex
	seen := make(map[string]bool)
	return func(req string) bool {
		mu.Lock()
		defer mu.Unlock()
		if seen[req] {
			return false
		}
		seen[req] = true
		return true
	}
}

// collector records verified responses per worker.
type collector struct {
	mu        sync.Mutex
	indices   map[int][]int
	responses map[int][]string
}

func newCollector() *collector {
	return &collector{indices: map[int][]int{}, responses: map[int][]string{}}
}

func (c *collector) observe(worker, index int, response []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indices[worker] = append(c.indices[worker], index)
	c.responses[worker] = append(c.responses[worker], string(response))
}

func (c *collector) snapshot() (map[int][]int, map[int][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indices, c.responses
}

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
