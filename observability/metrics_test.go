package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	req := require.New(t)
	m := NewMetrics(prometheus.NewRegistry())

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.MessageSent(true)
	m.MessageSent(false)
	m.SendFailed("RATE_LIMITED")

	req.Equal(1.0, testutil.ToFloat64(m.connections))
	req.Equal(2.0, testutil.ToFloat64(m.messagesSent))
	req.Equal(1.0, testutil.ToFloat64(m.newConversation))
	req.Equal(1.0, testutil.ToFloat64(m.sendFailures.WithLabelValues("RATE_LIMITED")))
}

func TestMetrics_Nil_Is_Noop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ConnectionOpened()
		m.MessageSent(true)
		m.SendFailed("MESSAGE_FAILED")
		m.ProcessStats(1, 1)
	})
}
