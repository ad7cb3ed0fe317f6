package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/themeschema/internal/observability"
	"github.com/starford/themeschema/internal/snapshot"
	"github.com/starford/themeschema/internal/sse"
	"github.com/starford/themeschema/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir, _ := testutil.TestSchemaDir(t)
	cfg := NewDefaultConfig()
	cfg.Schema.Dir = dir
	cfg.Schema.Watch = false
	cfg.Snapshot.SQLitePath = testutil.TestDBPath(t)
	require.NoError(t, cfg.Validate())
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func nextEvent(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return ""
	}
}

func TestService_InitialLoad(t *testing.T) {
	cfg := testConfig(t)
	m := observability.InitMetrics(prometheus.NewRegistry())

	svc, err := newService(context.Background(), cfg, quietLogger(), m)
	require.NoError(t, err)
	defer svc.Close()

	assert.True(t, svc.api.Ready())
	assert.Equal(t, 39, svc.api.Stats().TotalProperties)
	assert.Equal(t, float64(39), promtestutil.ToFloat64(m.SchemaProperties))
	assert.Equal(t, float64(3), promtestutil.ToFloat64(m.SchemaVisuals))

	// The snapshot was persisted under the source checksum.
	sums, err := svc.snapshots.Checksums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{svc.api.Checksum()}, sums)
}

func TestService_InitialLoadFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	testutil.WriteFile(t, cfg.Schema.Dir, testutil.RootFile, "{not json")

	_, err := newService(context.Background(), cfg, quietLogger(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial load")
}

func TestService_ReloadPublishesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	m := observability.InitMetrics(prometheus.NewRegistry())
	svc, err := newService(context.Background(), cfg, quietLogger(), m)
	require.NoError(t, err)
	defer svc.Close()

	svc.broker = sse.NewBroker(time.Millisecond)
	defer svc.broker.Close()
	events := svc.broker.Subscribe()

	before := svc.api.Checksum()
	testutil.WriteFile(t, cfg.Schema.Dir, testutil.RootFile,
		`{"properties": {"name": {"type": "string"}, "extra": {"type": "number"}}}`)

	require.NoError(t, svc.reload(context.Background()))

	assert.NotEqual(t, before, svc.api.Checksum())
	assert.Equal(t, 2, svc.api.Stats().TotalProperties)
	assert.Equal(t, float64(2), promtestutil.ToFloat64(m.SchemaReloadsTotal.WithLabelValues(observability.ReloadSuccess)))
	assert.Equal(t, float64(2), promtestutil.ToFloat64(m.SchemaProperties))

	msg := nextEvent(t, events)
	assert.Contains(t, msg, "event: "+sse.EventReloaded)
	assert.Contains(t, msg, `"properties":2`)
}

func TestService_FailedReloadKeepsSnapshot(t *testing.T) {
	cfg := testConfig(t)
	m := observability.InitMetrics(prometheus.NewRegistry())
	svc, err := newService(context.Background(), cfg, quietLogger(), m)
	require.NoError(t, err)
	defer svc.Close()

	svc.broker = sse.NewBroker(time.Millisecond)
	defer svc.broker.Close()
	events := svc.broker.Subscribe()

	before := svc.api.Checksum()
	testutil.WriteFile(t, cfg.Schema.Dir, testutil.RootFile, "{broken")

	require.Error(t, svc.reload(context.Background()))

	assert.Equal(t, before, svc.api.Checksum())
	assert.Equal(t, 39, svc.api.Stats().TotalProperties)
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.SchemaReloadsTotal.WithLabelValues(observability.ReloadFailure)))
	assert.Contains(t, nextEvent(t, events), "event: "+sse.EventReloadFailed)
}

func TestService_SnapshotReusedAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)

	first, err := newService(context.Background(), cfg, quietLogger(), nil)
	require.NoError(t, err)
	sum := first.api.Checksum()
	first.Close()

	second, err := newService(context.Background(), cfg, quietLogger(), nil)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, sum, second.api.Checksum())
	assert.Equal(t, 39, second.api.Stats().TotalProperties)
}

func TestExport_WritesDocument(t *testing.T) {
	cfg := testConfig(t)
	out := filepath.Join(t.TempDir(), "out", "snapshot.json")

	require.NoError(t, Export(context.Background(), out, WithConfig(cfg), WithLogOutput(io.Discard)))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	doc, err := snapshot.Decode(f)
	require.NoError(t, err)
	assert.Len(t, doc.Properties, 39)
	assert.NotEmpty(t, doc.Checksum)
}

func TestRun_RequiresConfig(t *testing.T) {
	err := Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "config is required"))
}
