package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// printMetrics writes every non-zero counter in reg as a table.
func printMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	rows := metricRows(families)
	if len(rows) == 0 {
		fmt.Fprintln(w, "no requests sent")
		return nil
	}

	printTable(w, []string{"METRIC", "LABELS", "VALUE"}, rows)

	return nil
}

// metricRows flattens counter families into sorted table rows.
func metricRows(families []*dto.MetricFamily) [][]string {
	var rows [][]string

	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}

		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}

			rows = append(rows, []string{
				mf.GetName(),
				formatLabels(m.GetLabel()),
				strconv.FormatFloat(v, 'f', -1, 64),
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i][0] != rows[j][0] {
			return rows[i][0] < rows[j][0]
		}

		return rows[i][1] < rows[j][1]
	})

	return rows
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return "-"
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}

	return strings.Join(parts, ",")
}
