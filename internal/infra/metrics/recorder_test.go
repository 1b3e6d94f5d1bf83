package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/osvaldoandrade/docprov/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsActions(t *testing.T) {
	r := NewRecorder()
	r.CollectionApplied(domain.CollectionCreated)
	r.CollectionApplied(domain.CollectionUnchanged)
	r.IndexApplied(domain.IndexCreated)
	r.IndexApplied(domain.IndexCreated)
	r.IndexApplied(domain.IndexExists)
	r.RunFinished(domain.RunSucceeded, 250*time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(r.collections.WithLabelValues("created")))
	require.Equal(t, 2.0, testutil.ToFloat64(r.indexes.WithLabelValues("created")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.indexes.WithLabelValues("exists")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("succeeded")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.RunFinished(domain.RunFailed, time.Second)

	path := filepath.Join(t.TempDir(), "docprov.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.True(t, strings.Contains(text, `docprov_runs_total{status="failed"} 1`), text)
	require.True(t, strings.Contains(text, "docprov_run_seconds_count 1"), text)
}
