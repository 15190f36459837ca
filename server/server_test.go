package server_test

import (
	"context"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/client"
	"github.com/momentics/hioload-udp/server"
)

func itoa(i int) string { return strconv.Itoa(i) }

func deadline() time.Time { return time.Now().Add(100 * time.Millisecond) }

// engine is the surface shared by both servers.
type engine interface {
	api.Server
	Ports() []int
}

func engines() map[string]func(t *testing.T) engine {
	out := map[string]func(t *testing.T) engine{
		"blocking": func(t *testing.T) engine {
			return server.NewBlocking(server.WithLogger(testr.New(t)))
		},
	}
	if runtime.GOOS == "linux" {
		out["nonblocking"] = func(t *testing.T) engine {
			return server.NewNonblocking(server.WithLogger(testr.New(t)), server.WithPollTimeout(20*time.Millisecond))
		}
	}
	return out
}

func TestBlockingHelloScenario(t *testing.T) {
	s := server.NewBlocking(server.WithLogger(testr.New(t)))
	require.NoError(t, s.Start(2, map[int]string{0: "Hello, $"}))
	port := s.Ports()[0]

	col := newCollector()
	c := client.NewBlocking(client.WithTimeout(100*time.Millisecond), client.WithObserver(col.observe))
	require.NoError(t, c.Run(context.Background(), "127.0.0.1", port, "req", 3, 2))

	for w := 1; w <= 3; w++ {
		id := itoa(w)
		assert.Equal(t, []string{"Hello, req" + id + "_1", "Hello, req" + id + "_2"}, col.get(w))
	}
	require.NoError(t, s.Close())
	assert.GreaterOrEqual(t, testutil.ToFloat64(s.Metrics().AnswersSent), 6.0)
}

func TestServerAnswersOnEveryPort(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			p1, p2 := freePort(t), freePort(t)
			s := newEngine(t)
			require.NoError(t, s.Start(2, map[int]string{p1: "one: $", p2: "$ :two"}))
			defer s.Close()

			assert.ElementsMatch(t, []int{p1, p2}, s.Ports())
			assert.Equal(t, "one: hi", exchange(t, p1, "hi"))
			assert.Equal(t, "hi :two", exchange(t, p2, "hi"))
		})
	}
}

func TestServerLifecycle(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			s := newEngine(t)
			assert.ErrorIs(t, s.Close(), api.ErrLifecycle)

			require.NoError(t, s.Start(1, map[int]string{0: "$"}))
			assert.ErrorIs(t, s.Start(1, map[int]string{0: "$"}), api.ErrLifecycle)
			assert.Equal(t, "x", exchange(t, s.Ports()[0], "x"))

			require.NoError(t, s.Close())
			assert.ErrorIs(t, s.Close(), api.ErrLifecycle)
			assert.ErrorIs(t, s.Start(1, map[int]string{0: "$"}), api.ErrLifecycle)
		})
	}
}

func TestServerRejectsBadConfiguration(t *testing.T) {
	cases := []struct {
		name      string
		threads   int
		templates map[int]string
	}{
		{"zero threads", 0, map[int]string{0: "$"}},
		{"no ports", 1, map[int]string{}},
		{"no marker", 1, map[int]string{0: "Hello"}},
		{"two markers", 1, map[int]string{0: "$ and $"}},
		{"port out of range", 1, map[int]string{70000: "$"}},
	}
	for name, newEngine := range engines() {
		for _, tc := range cases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				s := newEngine(t)
				assert.ErrorIs(t, s.Start(tc.threads, tc.templates), api.ErrConfiguration)
				// nothing retained: the engine can still start
				require.NoError(t, s.Start(1, map[int]string{0: "$"}))
				require.NoError(t, s.Close())
			})
		}
	}
}

func TestServerBindConflictIsFatal(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			busy := occupy(t)
			s := newEngine(t)
			err := s.Start(1, map[int]string{0: "$", busy: "$"})
			require.Error(t, err)
			assert.ErrorIs(t, err, api.ErrFatalIO)
			assert.ErrorIs(t, s.Close(), api.ErrLifecycle)

			require.NoError(t, s.Start(1, map[int]string{0: "$"}))
			require.NoError(t, s.Close())
		})
	}
}
