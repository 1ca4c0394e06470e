package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ghnotify/internal/adapter/driven/metrics"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

func TestPoll_RecordsObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := metrics.NewPoll(reg)

	p.CycleCompleted(driven.CycleOK, 200*time.Millisecond)
	p.CycleCompleted(driven.CycleOK, time.Second)
	p.CycleCompleted(driven.CycleError, time.Second)
	p.NewPullRequests(3)
	p.NewPullRequests(2)
	p.DeliverySuppressed()
	p.Tracked(7)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				key := mf.GetName()
				for _, l := range m.GetLabel() {
					key += "/" + l.GetValue()
				}
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				values[mf.GetName()+"_count"] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, 2.0, values["ghnotify_poll_cycles_total/ok"])
	assert.Equal(t, 1.0, values["ghnotify_poll_cycles_total/error"])
	assert.Equal(t, 0.0, values["ghnotify_poll_cycles_total/unchanged"])
	assert.Equal(t, 3.0, values["ghnotify_poll_cycle_duration_seconds_count"])
	assert.Equal(t, 5.0, values["ghnotify_new_pull_requests_total"])
	assert.Equal(t, 1.0, values["ghnotify_deliveries_suppressed_total"])
	assert.Equal(t, 7.0, values["ghnotify_tracked_pull_requests"])
}

func TestPoll_CollectorsLint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewPoll(reg)

	problems, err := testutil.GatherAndLint(reg)
	require.NoError(t, err)
	assert.Empty(t, problems)
}
