package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboard "energy-dashboard/internal/dashboard/domain"
	history "energy-dashboard/internal/history/domain"
	"energy-dashboard/internal/solax"
)

var fixedNow = time.Date(2024, 6, 1, 12, 7, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestRemoteProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Filters dashboard.Filters `json:"filters"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, dashboard.Range7d, body.Filters.Range)
		_, _ = w.Write([]byte(`{"summary":[{"label":"x","value":1}],"history":[{"datetime":"2024-06-01T10:00:00Z","production":2,"export":1,"import":0.5}]}`))
	}))
	defer server.Close()

	p := NewRemote(server.URL, time.Second)
	payload, err := p.TryLoad(context.Background(), dashboard.Filters{Range: dashboard.Range7d})
	require.NoError(t, err)
	assert.Equal(t, dashboard.TagRemoteBackend, payload.SourceUsed)
	require.Len(t, payload.History, 1)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), payload.History[0].Timestamp)
	assert.Equal(t, 0.5, payload.History[0].Import)
}

func TestRemoteProviderFailures(t *testing.T) {
	assert.ErrorIs(t, mustErr(NewRemote("", 0).TryLoad(context.Background(), dashboard.Filters{})), dashboard.ErrSkipped)

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()
	_, err := NewRemote(slow.URL, 50*time.Millisecond).TryLoad(context.Background(), dashboard.Filters{})
	assert.ErrorIs(t, err, dashboard.ErrProviderUnavailable)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"summary":[]}`))
	}))
	defer bad.Close()
	_, err = NewRemote(bad.URL, time.Second).TryLoad(context.Background(), dashboard.Filters{})
	assert.ErrorIs(t, err, dashboard.ErrInvalidPayload)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()
	_, err = NewRemote(down.URL, time.Second).TryLoad(context.Background(), dashboard.Filters{})
	assert.ErrorIs(t, err, dashboard.ErrProviderUnavailable)
}

func mustErr(_ *dashboard.Payload, err error) error { return err }

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "dashboard.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestScriptProvider(t *testing.T) {
	path := writeScript(t, `printf '{"summary":[{"label":"%s","value":1}],"history":[]}' "$DASHBOARD_RANGE-$DASHBOARD_SOURCE-$DASHBOARD_INTERVAL"`)
	p := NewScript(ScriptConfig{Path: path, Interpreter: "sh", Timeout: 5 * time.Second})

	payload, err := p.TryLoad(context.Background(), dashboard.Filters{Range: dashboard.Range30d, Source: dashboard.SourceAuto, Interval: dashboard.Interval1d})
	require.NoError(t, err)
	assert.Equal(t, dashboard.TagLocalScript, payload.SourceUsed)
	require.Len(t, payload.Summary, 1)
	assert.Equal(t, "30d-auto-1d", payload.Summary[0].Label)
	assert.NotNil(t, payload.History)
}

func TestScriptProviderFailures(t *testing.T) {
	assert.ErrorIs(t, mustErr(NewScript(ScriptConfig{}).TryLoad(context.Background(), dashboard.Filters{})), dashboard.ErrSkipped)

	slow := NewScript(ScriptConfig{Path: writeScript(t, "sleep 5"), Interpreter: "sh", Timeout: 100 * time.Millisecond})
	start := time.Now()
	_, err := slow.TryLoad(context.Background(), dashboard.Filters{})
	assert.ErrorIs(t, err, dashboard.ErrProviderUnavailable)
	assert.Less(t, time.Since(start), 4*time.Second)

	failing := NewScript(ScriptConfig{Path: writeScript(t, "echo broken >&2; exit 3"), Interpreter: "sh"})
	_, err = failing.TryLoad(context.Background(), dashboard.Filters{})
	require.ErrorIs(t, err, dashboard.ErrProviderUnavailable)
	assert.True(t, strings.Contains(err.Error(), "broken"))

	garbage := NewScript(ScriptConfig{Path: writeScript(t, "echo not-json"), Interpreter: "sh"})
	_, err = garbage.TryLoad(context.Background(), dashboard.Filters{})
	assert.ErrorIs(t, err, dashboard.ErrInvalidPayload)
}

type stubLoader struct {
	series history.Series
	err    error
	got    history.Query
}

func (s *stubLoader) Reconcile(_ context.Context, q history.Query) (history.Series, error) {
	s.got = q
	return s.series, s.err
}

func TestStoreProvider(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	loader := &stubLoader{series: history.Series{
		Points: []history.ReconciledPoint{{Timestamp: ts, ProductionKWh: 4, GridExportKWh: 1, GridImportKWh: 2}},
		Totals: history.Totals{ProductionKWh: 4, GridExportKWh: 1, GridImportKWh: 2},
	}}
	p, err := NewStore(loader, "default", clock)
	require.NoError(t, err)

	payload, err := p.TryLoad(context.Background(), dashboard.Filters{Range: dashboard.Range24h, Source: dashboard.SourceSolax, Interval: dashboard.Interval15m})
	require.NoError(t, err)
	assert.Equal(t, history.PreferInverter, loader.got.Preferred)
	assert.Equal(t, 15, loader.got.IntervalMinutes)
	assert.Equal(t, "default", loader.got.SystemID)
	assert.Equal(t, fixedNow.Add(-24*time.Hour), loader.got.From)
	require.Len(t, payload.History, 1)
	assert.Equal(t, 2.0, payload.History[0].Import)
	assert.Equal(t, 4.0, payload.Summary[0].Value)

	loader.err = history.ErrNoDataInRange
	_, err = p.TryLoad(context.Background(), dashboard.Filters{Range: dashboard.Range24h})
	assert.ErrorIs(t, err, dashboard.ErrNoData)

	loader.err = errors.New("connection refused")
	_, err = p.TryLoad(context.Background(), dashboard.Filters{Range: dashboard.Range24h})
	assert.ErrorIs(t, err, dashboard.ErrProviderUnavailable)
}

type stubRealtime struct {
	configured bool
	rt         solax.Realtime
	err        error
}

func (s stubRealtime) Configured() bool { return s.configured }

func (s stubRealtime) FetchRealtime(context.Context) (solax.Realtime, error) { return s.rt, s.err }

func ptr(v float64) *float64 { return &v }

func TestLiveProvider(t *testing.T) {
	_, err := NewLive(stubRealtime{}, clock).TryLoad(context.Background(), dashboard.Filters{})
	assert.ErrorIs(t, err, dashboard.ErrSkipped)

	src := stubRealtime{configured: true, rt: solax.Realtime{ACPower: ptr(2000), FeedInPower: ptr(500), YieldToday: ptr(7.1234), UploadTime: "2024-06-01 12:05:00"}}
	payload, err := NewLive(src, clock).TryLoad(context.Background(), dashboard.Filters{Range: dashboard.Range24h, Interval: dashboard.Interval1h})
	require.NoError(t, err)
	assert.Equal(t, dashboard.TagSolaxLive, payload.SourceUsed)
	require.Len(t, payload.History, 24)
	last := payload.History[23]
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), last.Timestamp)
	assert.InDelta(t, 2.0, last.Production, 1e-9)
	assert.InDelta(t, 0.5, last.Export, 1e-9)
	assert.InDelta(t, 1.5, last.Import, 1e-9)
	assert.True(t, payload.History[0].Timestamp.Before(last.Timestamp))
	assert.Equal(t, 7.123, payload.Summary[3].Value)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC), payload.RefreshedAt)

	_, err = NewLive(stubRealtime{configured: true, err: errors.New("timeout")}, clock).TryLoad(context.Background(), dashboard.Filters{})
	assert.ErrorIs(t, err, dashboard.ErrProviderUnavailable)
}

func TestDemoProviderIsDeterministic(t *testing.T) {
	d := NewDemo(clock)
	f := dashboard.Filters{Range: dashboard.Range24h, Interval: dashboard.Interval1h}
	a, err := d.TryLoad(context.Background(), f)
	require.NoError(t, err)
	b, err := d.TryLoad(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	require.Len(t, a.History, 24)

	newest := a.History[23]
	assert.Equal(t, fixedNow, newest.Timestamp)
	assert.InDelta(t, 40.0, newest.Production, 1e-9)
	assert.InDelta(t, 25.0, newest.Export, 1e-9)
	assert.InDelta(t, 10.0, newest.Import, 1e-9)
	assert.Equal(t, 122000.0, a.Summary[3].Value)
	require.NoError(t, a.Validate())
}
