package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webbmaffian/go-mpsc/channel"
)

func TestCollector(t *testing.T) {
	snd, rcv := channel.New[int]()
	clone := snd.Clone()

	snd.Send(1)
	snd.Send(2)
	snd.Send(3)
	_, _ = rcv.Receive()

	c := NewCollector("jobs", rcv)

	expected := `
# HELP mpsc_closed 1 if every sender has been closed, otherwise 0.
# TYPE mpsc_closed gauge
mpsc_closed{channel="jobs"} 0
# HELP mpsc_queue_length Number of items queued and not yet received.
# TYPE mpsc_queue_length gauge
mpsc_queue_length{channel="jobs"} 2
# HELP mpsc_received_total Total number of items received.
# TYPE mpsc_received_total counter
mpsc_received_total{channel="jobs"} 1
# HELP mpsc_senders Number of live sender handles.
# TYPE mpsc_senders gauge
mpsc_senders{channel="jobs"} 2
# HELP mpsc_sent_total Total number of items sent.
# TYPE mpsc_sent_total counter
mpsc_sent_total{channel="jobs"} 3
`

	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))

	clone.Close()
	snd.Close()

	expected = `
# HELP mpsc_closed 1 if every sender has been closed, otherwise 0.
# TYPE mpsc_closed gauge
mpsc_closed{channel="jobs"} 1
# HELP mpsc_senders Number of live sender handles.
# TYPE mpsc_senders gauge
mpsc_senders{channel="jobs"} 0
`

	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "mpsc_closed", "mpsc_senders"))
}

func TestCollectorRegisters(t *testing.T) {
	snd, _ := channel.New[string]()
	defer snd.Close()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector("a", snd)))
	require.NoError(t, reg.Register(NewCollector("b", snd)))

	count, err := testutil.GatherAndCount(reg, "mpsc_senders")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
