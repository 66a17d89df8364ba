package monitoring

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/keyreg/internal/config"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/logger"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordTransition("revoke", true, "")
	m.RecordTransition("revoke", false, "invalid_transition")
	m.RecordBulkOutcome("revoke", "applied")
	m.RecordBulkOutcome("revoke", "applied")
	m.RecordBulkDuration("revoke", 2, 15*time.Millisecond)
	m.RecordExpirations(3)
	m.UpdateRecordCount("active", 7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("revoke", "true", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("revoke", "false", "invalid_transition")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BulkOutcomes.WithLabelValues("revoke", "applied")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Expirations))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.RecordsByState.WithLabelValues("active")))
}

func TestZapLogger_WritesStructuredJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := NewZapLogger(&config.LogConfig{Level: "info", Format: "json", OutputPath: path})
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), constants.ContextKeyRequestID, "req-1")
	log.WithComponent("KeyRegistry").Info(ctx, "key revoked", logger.String("key_id", "k1"))
	log.Debug(ctx, "suppressed at info")
	log.SetLevel("debug")
	log.Debug(ctx, "visible after level change")
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "key revoked", entry["msg"])
	assert.Equal(t, "KeyRegistry", entry["component"])
	assert.Equal(t, "k1", entry["key_id"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, constants.ServiceName, entry["service"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewTracingManager_Disabled(t *testing.T) {
	tm, err := NewTracingManager(&config.TracingConfig{Enabled: false}, logger.NewNoopLogger())
	require.NoError(t, err)
	require.NotNil(t, tm.Tracer())

	_, span := tm.Tracer().Start(context.Background(), "noop")
	EndSpan(span, nil)
	assert.NoError(t, tm.Shutdown(context.Background()))
}
