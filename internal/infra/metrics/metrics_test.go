package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"discount_reminder/internal/app"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRunMetrics(reg)

	m.Observe(&app.RunSummary{
		StartedAt:      time.UnixMilli(1_700_000_000_000),
		ConfigValid:    true,
		Candidates:     4,
		Sent:           2,
		Failed:         1,
		SkippedClaimed: 1,
		MarkFailed:     1,
	}, nil)
	m.Observe(&app.RunSummary{ConfigValid: false}, nil)
	m.Observe(&app.RunSummary{ConfigValid: true}, errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(ResultInvalidConfig)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(ResultError)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.candidates))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.emails.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emails.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.markFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.claimSkips))
}

func TestServer_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRunMetrics(reg)
	m.Observe(&app.RunSummary{ConfigValid: true, Sent: 1}, nil)

	l := logrus.New()
	l.SetOutput(io.Discard)
	srv := NewServer(":0", reg, logrus.NewEntry(l))

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `discount_reminder_emails_total{result="sent"} 1`)
}
