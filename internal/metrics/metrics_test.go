package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ActionFinished("lease", "archive", OutcomeFailed)
	m.ActionFinished("lease", "archive", OutcomeFailed)
	m.RowMutated("lease", nil)
	m.RowMutated("lease", errors.New("boom"))
	m.OptionFetch("city", FetchStale)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.actionRuns.WithLabelValues("lease", "archive", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowMutations.WithLabelValues("lease", FetchOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowMutations.WithLabelValues("lease", FetchError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.optionFetches.WithLabelValues("city", FetchStale)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ActionFinished("a", "b", OutcomeSucceeded)
		m.RowMutated("a", nil)
		m.OptionFetch("f", FetchOK)
		m.SessionOpened()
		m.SessionClosed()
	})
}
