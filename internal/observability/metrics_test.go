package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordRun("direct", "completed", 5, 3*time.Second)
	m.RecordTransfers("direct", "success", 4)
	m.RecordTransfers("direct", "failed", 1)
	m.RecordTransfers("direct", "failed", 0)
	m.RecordSkipped()
	m.RecordRPCCall("sendTransaction", 20*time.Millisecond, nil)
	m.RecordRPCCall("sendTransaction", 20*time.Millisecond, errors.New("boom"))
	m.RecordDBWriteError("ledger", "insert")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("direct", "completed")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.RecipientsTotal.WithLabelValues("direct")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.TransfersTotal.WithLabelValues("direct", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransfersTotal.WithLabelValues("direct", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransfersSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCallErrors.WithLabelValues("sendTransaction")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBWriteErrors.WithLabelValues("ledger", "insert")))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccessfulRun), 0.0)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRun("direct", "completed", 1, time.Second)
	m.RecordTransfers("direct", "success", 1)
	m.RecordTransferLatency(time.Second)
	m.RecordSkipped()
	m.RecordRPCCall("getAccountInfo", time.Second, nil)
	m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
	m.RecordDBWriteError("runs", "insert")
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Two instances must not collide when registered separately.
	NewMetrics("", prometheus.NewRegistry())
	NewMetrics("", prometheus.NewRegistry())
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordHTTPRequest("POST", "/api/airdrop", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_http_requests_total{code="200",method="POST",route="/api/airdrop"} 1`))
}
