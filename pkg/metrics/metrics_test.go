package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name   string
	value  float64
	labels Labels
}

type fakeBackend struct {
	mu         sync.Mutex
	counters   []call
	histograms []call
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counters = append(f.counters, call{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.histograms = append(f.histograms, call{name, value, labels})
}

func install(t *testing.T) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{}
	SetBackend(fb)
	t.Cleanup(func() { SetBackend(nil) })

	return fb
}

func TestRecordStage(t *testing.T) {
	fb := install(t)

	RecordStage("db", "success", 1500*time.Millisecond)

	require.Len(t, fb.counters, 1)
	assert.Equal(t, call{StageTotal, 1, Labels{"stage": "db", "status": "success"}}, fb.counters[0])

	require.Len(t, fb.histograms, 1)
	assert.Equal(t, StageDurationSeconds, fb.histograms[0].name)
	assert.InDelta(t, 1.5, fb.histograms[0].value, 1e-9)
	assert.Equal(t, Labels{"stage": "db"}, fb.histograms[0].labels)
}

func TestRecordRunAndHalt(t *testing.T) {
	fb := install(t)

	RecordRun("error")
	RecordHalt("no_rows_from_db")

	assert.Equal(t, []call{
		{RunsTotal, 1, Labels{"status": "error"}},
		{SupervisorHaltsTotal, 1, Labels{"reason": "no_rows_from_db"}},
	}, fb.counters)
	assert.Empty(t, fb.histograms)
}

func TestSetBackend_NilRestoresNop(t *testing.T) {
	fb := install(t)

	SetBackend(nil)
	RecordRun("success")

	assert.Empty(t, fb.counters)
	assert.IsType(t, nopBackend{}, current())
}
