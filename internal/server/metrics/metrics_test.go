package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New("test", prometheus.NewRegistry())

	m.IncConnections()
	m.IncConnections()
	m.DecConnections()
	m.SetActiveRooms(3)
	m.IncMessagesReceived("ROLL")
	m.IncMessagesReceived("ROLL")
	m.IncDropped("wrong_phase")
	m.IncEventsBroadcast("DICE_ROLL")
	m.IncResync("replay")
	m.ObserveMessageLatency(2 * time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.connections), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.rooms), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.messagesReceived.WithLabelValues("ROLL")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.messagesDropped.WithLabelValues("wrong_phase")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.eventsBroadcast.WithLabelValues("DICE_ROLL")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.messageLatency))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncConnections()
		m.DecConnections()
		m.SetActiveRooms(1)
		m.IncMessagesReceived("ROLL")
		m.IncDropped("x")
		m.IncEventsBroadcast("x")
		m.IncResync("snapshot")
		m.ObserveMessageLatency(time.Second)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := New("billtolaw", prometheus.NewRegistry())
	m.IncDropped("not_your_turn")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `billtolaw_messages_dropped_total{reason="not_your_turn"} 1`)
}
