// Package metrics exports channel statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/webbmaffian/go-mpsc/channel"
)

const namespace = "mpsc"

// StatsSource is satisfied by both channel.Sender and channel.Receiver.
type StatsSource interface {
	Stats() channel.Stats
}

type collector struct {
	src         StatsSource
	queueLength *prometheus.Desc
	senders     *prometheus.Desc
	sent        *prometheus.Desc
	received    *prometheus.Desc
	closed      *prometheus.Desc
}

// NewCollector returns a collector reading a fresh snapshot of src on every
// scrape. Metrics carry a constant "channel" label, so one collector per
// channel can be registered in the same registry.
func NewCollector(name string, src StatsSource) prometheus.Collector {
	labels := prometheus.Labels{"channel": name}

	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", metric), help, nil, labels)
	}

	return &collector{
		src:         src,
		queueLength: desc("queue_length", "Number of items queued and not yet received."),
		senders:     desc("senders", "Number of live sender handles."),
		sent:        desc("sent_total", "Total number of items sent."),
		received:    desc("received_total", "Total number of items received."),
		closed:      desc("closed", "1 if every sender has been closed, otherwise 0."),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queueLength
	ch <- c.senders
	ch <- c.sent
	ch <- c.received
	ch <- c.closed
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.src.Stats()

	var closed float64

	if stats.Closed {
		closed = 1
	}

	ch <- prometheus.MustNewConstMetric(c.queueLength, prometheus.GaugeValue, float64(stats.Len))
	ch <- prometheus.MustNewConstMetric(c.senders, prometheus.GaugeValue, float64(stats.Senders))
	ch <- prometheus.MustNewConstMetric(c.sent, prometheus.CounterValue, float64(stats.Sent))
	ch <- prometheus.MustNewConstMetric(c.received, prometheus.CounterValue, float64(stats.Received))
	ch <- prometheus.MustNewConstMetric(c.closed, prometheus.GaugeValue, closed)
}
