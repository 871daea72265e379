package metrics_test

import (
	"bytes"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/keeper/pkg/metrics"
)

var errTest = fmt.Errorf("test error")

func classify(err error) string {
	if err == errTest {
		return "test_error"
	}
	return "internal"
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	r, err := metrics.NewRecorder(metrics.RecorderOpts{
		Registry: registry,
		Classify: classify,
	})
	require.NoError(t, err)
	require.Equal(t, registry, r.Registry())

	start := time.Now()
	r.Observe("backup", start, nil)
	r.Observe("backup", start, nil)
	r.Observe("backup", start, errTest)
	r.Observe("recover", start, fmt.Errorf("other"))

	// 3 label combinations for the counter, 2 for the histogram.
	count, err := testutil.GatherAndCount(registry)
	require.NoError(t, err)
	require.Equal(t, 5, count)

	buf := &bytes.Buffer{}
	require.NoError(t, r.Dump(buf))
	require.Contains(t, buf.String(), "keeper_operations_total")
	require.Contains(t, buf.String(), "test_error")

	datadir := t.TempDir()
	require.NoError(t, r.DumpToFile(datadir))
	files, err := os.ReadDir(datadir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, err = metrics.NewRecorder(metrics.RecorderOpts{
		Registry: registry,
		Classify: classify,
	})
	require.Error(t, err)

	_, err = metrics.NewRecorder(metrics.RecorderOpts{})
	require.Error(t, err)
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()

	r := metrics.NewNoopRecorder()
	require.NotPanics(t, func() {
		r.Observe("backup", time.Now(), errTest)
	})
}
