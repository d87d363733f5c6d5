package main

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintMetrics_Empty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printMetrics(&buf, prometheus.NewRegistry()))
	assert.Equal(t, "no requests sent\n", buf.String())
}

func TestPrintMetrics_SkipsZeroAndNonCounters(t *testing.T) {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "b_requests_total", Help: "h"}, []string{"verb"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{Name: "a_retries_total", Help: "h"})
	idle := prometheus.NewCounter(prometheus.CounterOpts{Name: "c_idle_total", Help: "h"})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{Name: "inflight", Help: "h"})
	reg.MustRegister(requests, retries, idle, inflight)

	requests.WithLabelValues("POST").Inc()
	requests.WithLabelValues("GET").Add(3)
	retries.Inc()
	inflight.Set(4)

	var buf bytes.Buffer
	require.NoError(t, printMetrics(&buf, reg))

	assert.Equal(t,
		"METRIC            LABELS     VALUE\n"+
			"a_retries_total   -          1\n"+
			"b_requests_total  verb=GET   3\n"+
			"b_requests_total  verb=POST  1\n",
		buf.String())
}
