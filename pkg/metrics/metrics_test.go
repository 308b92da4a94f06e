package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ScanOutcome(ScanIdentified)
	m.ScanOutcome(ScanIdentified)
	m.ScanOutcome(ScanSkipped)
	m.Feature(0.01, []string{"PC", "PC", "PE"})
	m.Feature(0.02, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Features))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Scans.WithLabelValues(ScanIdentified)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scans.WithLabelValues(ScanSkipped)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Scans.WithLabelValues(ScanEmpty)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Identities.WithLabelValues("PC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Identities.WithLabelValues("PE")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ScanOutcome(ScanEmpty)
		m.Feature(1, []string{"PC"})
	})
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.ScanOutcome(ScanEmpty)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `lipidkey_scans_total{outcome="empty"} 1`)
	assert.Contains(t, string(data), "lipidkey_features_total 0")
}
