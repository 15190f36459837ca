package client_test

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/client"
	"github.com/momentics/hioload-udp/fake"
	"github.com/momentics/hioload-udp/protocol"
)

func TestBlockingPlainTemplateSequence(t *testing.T) {
	port := startEcho(t, "$", nil)
	col := newCollector()
	c := client.NewBlocking(client.WithLogger(testr.New(t)), client.WithObserver(col.observe))

	require.NoError(t, c.Run(context.Background(), "127.0.0.1", port, "p", 1, 5))

	indices, responses := col.snapshot()
	assert.Equal(t, sequence(5), indices[1])
	assert.Equal(t, []string{"p1_1", "p1_2", "p1_3", "p1_4", "p1_5"}, responses[1])
	assert.Equal(t, 5.0, testutil.ToFloat64(c.Metrics().ResponsesAccepted))
}

func TestBlockingRecoversFromLoss(t *testing.T) {
	port := startEcho(t, "Hello, $", dropFirst())
	col := newCollector()
	c := client.NewBlocking(client.WithTimeout(30*time.Millisecond), client.WithObserver(col.observe))

	require.NoError(t, c.Run(context.Background(), "127.0.0.1", port, "req", 3, 2))

	_, responses := col.snapshot()
	for w := 1; w <= 3; w++ {
		id := strconv.Itoa(w)
		assert.Equal(t, []string{"Hello, req" + id + "_1", "Hello, req" + id + "_2"}, responses[w])
	}
	assert.GreaterOrEqual(t, testutil.ToFloat64(c.Metrics().Retries), 6.0)
}

func TestBlockingRetriesIdenticalIndex(t *testing.T) {
	tpl, err := protocol.ParseTemplate("Hello, $")
	require.NoError(t, err)
	nw := fake.NewNetwork(tpl, fake.Script(fake.Drop, fake.Corrupt, fake.Deliver, fake.Corrupt))
	col := newCollector()
	c := client.NewBlocking(
		client.WithDialer(nw.Dial),
		client.WithTimeout(10*time.Millisecond),
		client.WithObserver(col.observe),
	)

	require.NoError(t, c.Run(context.Background(), "fake", 1, "p", 1, 3))

	conns := nw.Conns()
	require.Len(t, conns, 1)
	assert.Equal(t, []string{"p1_1", "p1_1", "p1_1", "p1_2", "p1_2", "p1_3"}, conns[0].Sent())
	assert.True(t, conns[0].Closed())
	indices, _ := col.snapshot()
	assert.Equal(t, sequence(3), indices[1])
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Metrics().ResponsesRejected))
}

func TestBlockingNeverSkipsUnderPeriodicLoss(t *testing.T) {
	tpl, err := protocol.ParseTemplate("$!")
	require.NoError(t, err)
	nw := fake.NewNetwork(tpl, fake.DropEvery(2))
	col := newCollector()
	c := client.NewBlocking(client.WithDialer(nw.Dial), client.WithTimeout(5*time.Millisecond), client.WithObserver(col.observe))

	require.NoError(t, c.Run(context.Background(), "fake", 1, "w", 4, 6))

	indices, _ := col.snapshot()
	for w := 1; w <= 4; w++ {
		assert.Equal(t, sequence(6), indices[w], "worker %d", w)
	}
	index := regexp.MustCompile(`_(\d+)$`)
	for _, conn := range nw.Conns() {
		last := 1
		for _, req := range conn.Sent() {
			i, _ := strconv.Atoi(index.FindStringSubmatch(req)[1])
			assert.Contains(t, []int{last, last + 1}, i, "requests %v", conn.Sent())
			last = i
		}
	}
}

func TestBlockingCancellation(t *testing.T) {
	tpl, err := protocol.ParseTemplate("$")
	require.NoError(t, err)
	nw := fake.NewNetwork(tpl, func(int, string) fake.Action { return fake.Drop })
	c := client.NewBlocking(client.WithDialer(nw.Dial), client.WithTimeout(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, "fake", 1, "p", 2, 1) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	for _, conn := range nw.Conns() {
		assert.True(t, conn.Closed())
	}
}

func TestBlockingDialFailureAbortsOnlyThatWorker(t *testing.T) {
	tpl, err := protocol.ParseTemplate("$")
	require.NoError(t, err)
	nw := fake.NewNetwork(tpl, nil)
	var calls atomic.Int32
	dial := func(ctx context.Context, address string) (net.Conn, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("no sockets left")
		}
		return nw.Dial(ctx, address)
	}
	col := newCollector()
	c := client.NewBlocking(client.WithDialer(dial), client.WithObserver(col.observe))

	require.NoError(t, c.Run(context.Background(), "fake", 1, "p", 3, 2))

	indices, _ := col.snapshot()
	assert.Len(t, indices, 2)
	for _, got := range indices {
		assert.Equal(t, sequence(2), got)
	}
}

func TestRunRejectsBadArguments(t *testing.T) {
	engines := map[string]api.Client{
		"blocking":    client.NewBlocking(),
		"nonblocking": client.NewNonblocking(),
	}
	cases := []struct {
		name     string
		host     string
		port     int
		threads  int
		requests int
	}{
		{"empty host", "", 1, 1, 1},
		{"zero port", "localhost", 0, 1, 1},
		{"large port", "localhost", 70000, 1, 1},
		{"zero threads", "localhost", 1, 0, 1},
		{"negative requests", "localhost", 1, 1, -1},
	}
	for name, c := range engines {
		for _, tc := range cases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				err := c.Run(context.Background(), tc.host, tc.port, "p", tc.threads, tc.requests)
				assert.ErrorIs(t, err, api.ErrConfiguration)
			})
		}
	}
}
