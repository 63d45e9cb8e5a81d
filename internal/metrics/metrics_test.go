package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	pc, err := NewPrometheusCollector("test", reg)
	require.NoError(t, err)

	pc.RecordSync("org-1", 3, 2, 150*time.Millisecond)
	pc.RecordTransaction("auto")
	pc.RecordTransaction("auto")
	pc.RecordTransaction("unmatched")
	pc.RecordDuplicate()
	pc.RecordProviderError()
	pc.RecordRuleFired()

	require.Equal(t, 1.0, testutil.ToFloat64(pc.syncs))
	require.Equal(t, 2.0, testutil.ToFloat64(pc.transactions.WithLabelValues("auto")))
	require.Equal(t, 1.0, testutil.ToFloat64(pc.transactions.WithLabelValues("unmatched")))
	require.Equal(t, 1.0, testutil.ToFloat64(pc.duplicates))
	require.Equal(t, 1.0, testutil.ToFloat64(pc.providerErrors))
	require.Equal(t, 0.0, testutil.ToFloat64(pc.persistenceErrors))
	require.Equal(t, 1.0, testutil.ToFloat64(pc.rulesFired))

	// registering twice on the same registry fails
	_, err = NewPrometheusCollector("test", reg)
	require.Error(t, err)
}

func TestNoOpCollectorSatisfiesInterface(t *testing.T) {
	t.Parallel()

	var c Collector = NoOpCollector{}
	c.RecordSync("org", 1, 1, time.Second)
	c.RecordPersistenceError()
}
