package control_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-udp/control"
)

func TestMetricsAreInstanceScoped(t *testing.T) {
	a := control.NewMetrics("client")
	b := control.NewMetrics("client")

	a.RequestsSent.Inc()
	a.RequestsSent.Inc()
	b.RequestsSent.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.RequestsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.RequestsSent))
}

func TestMetricsHandler(t *testing.T) {
	m := control.NewMetrics("server")
	m.AnswersSent.Add(3)
	m.Outstanding.Set(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `hello_answers_sent_total{engine="server"} 3`)
	assert.Contains(t, string(body), `hello_outstanding_requests{engine="server"} 1`)
}

func TestGatherersMergesEngines(t *testing.T) {
	a := control.NewMetrics("blocking-server")
	b := control.NewMetrics("nonblocking-server")
	families, err := control.Gatherers(a, b).Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
	for _, f := range families {
		if f.GetName() == "hello_answers_sent_total" {
			assert.Len(t, f.GetMetric(), 2)
		}
	}
}

func TestProbesDumpState(t *testing.T) {
	p := control.NewProbes()
	p.Register("slots", func() any { return 4 })
	p.Register("channels", func() any { return "two" })
	p.Register("slots", func() any { return 5 })

	state := p.DumpState()
	assert.Equal(t, map[string]any{"slots": 5, "channels": "two"}, state)
}
