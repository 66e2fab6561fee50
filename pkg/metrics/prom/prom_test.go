package prom_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/datapilot/pkg/metrics"
	"github.com/dukex/datapilot/pkg/metrics/prom"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_Counters(t *testing.T) {
	t.Parallel()

	b, err := prom.NewBackend()
	require.NoError(t, err)

	b.IncCounter(metrics.StageTotal, 1, metrics.Labels{"stage": "nlp", "status": "success"})
	b.IncCounter(metrics.StageTotal, 1, metrics.Labels{"stage": "nlp", "status": "success"})
	b.IncCounter(metrics.RunsTotal, 1, metrics.Labels{"status": "error"})
	b.IncCounter(metrics.SupervisorHaltsTotal, 1, metrics.Labels{"reason": "no_query"})
	b.IncCounter("unknown_total", 1, nil)
	b.ObserveHistogram(metrics.StageDurationSeconds, 0.2, metrics.Labels{"stage": "nlp"})

	count, err := testutil.GatherAndCount(b.Registry(),
		metrics.StageTotal, metrics.RunsTotal, metrics.SupervisorHaltsTotal, metrics.StageDurationSeconds)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestBackend_Handler(t *testing.T) {
	t.Parallel()

	b, err := prom.NewBackend()
	require.NoError(t, err)

	b.IncCounter(metrics.RunsTotal, 1, metrics.Labels{"status": "success"})

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `datapilot_runs_total{status="success"} 1`)
}
