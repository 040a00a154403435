package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdwh/pkg/catalog"
	"github.com/leapstack-labs/leapdwh/pkg/load"
)

type fakeProber struct {
	mu      sync.Mutex
	counts  map[string]int
	files   map[string]string
	listErr error
	probed  []string
}

func (f *fakeProber) Count(_ context.Context, location string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, location)
	if f.listErr != nil {
		return 0, f.listErr
	}
	return f.counts[location], nil
}

func (f *fakeProber) Exists(_ context.Context, location string) (bool, error) {
	_, ok := f.files[location]
	return ok, nil
}

func (f *fakeProber) ReadFile(_ context.Context, location string) ([]byte, error) {
	data, ok := f.files[location]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(data), nil
}

func jsonPathsFor(n int) string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = `"$['c` + string(rune('a'+i)) + `']"`
	}
	return `{"jsonpaths": [` + strings.Join(paths, ",") + `]}`
}

func healthyProber() *fakeProber {
	return &fakeProber{
		counts: map[string]int{
			testSources.LogData:  30,
			testSources.SongData: 71,
		},
		files: map[string]string{
			testSources.LogJSONPath: jsonPathsFor(18),
		},
	}
}

func TestPreflight_Check(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *fakeProber)
		wantErr string
	}{
		{
			name: "all sources ready",
		},
		{
			name:    "empty song prefix",
			mutate:  func(p *fakeProber) { p.counts[testSources.SongData] = 0 },
			wantErr: "preflight songs: no objects found",
		},
		{
			name:    "missing jsonpaths file",
			mutate:  func(p *fakeProber) { delete(p.files, testSources.LogJSONPath) },
			wantErr: "jsonpaths file s3://bucket/log_json_path.json not found",
		},
		{
			name:    "jsonpaths column mismatch",
			mutate:  func(p *fakeProber) { p.files[testSources.LogJSONPath] = jsonPathsFor(17) },
			wantErr: "17 paths but staging_events has 18 columns",
		},
		{
			name:    "malformed jsonpaths",
			mutate:  func(p *fakeProber) { p.files[testSources.LogJSONPath] = "{" },
			wantErr: "failed to parse jsonpaths file",
		},
		{
			name:    "listing fails",
			mutate:  func(p *fakeProber) { p.listErr = errors.New("AccessDenied") },
			wantErr: "AccessDenied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := healthyProber()
			if tt.mutate != nil {
				tt.mutate(prober)
			}
			pf := NewPreflight(prober, catalog.New(), nil)

			err := pf.Check(context.Background(), load.Sources(testSources))
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{testSources.LogData, testSources.SongData}, prober.probed)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPreflight_MissingLocation(t *testing.T) {
	cfg := testSources
	cfg.SongData = ""
	pf := NewPreflight(healthyProber(), catalog.New(), nil)

	err := pf.Check(context.Background(), load.Sources(cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preflight songs: no source location configured")
}

func TestRun_PreflightFailureTouchesNothing(t *testing.T) {
	h := newHarness(t)
	prober := healthyProber()
	prober.counts[testSources.LogData] = 0
	h.cfg.Preflight = NewPreflight(prober, h.cfg.Catalog, nil)

	res, err := h.pipeline(t).Run(context.Background(), ModeFull)
	require.Error(t, err)
	require.NoError(t, h.mock.ExpectationsWereMet())

	assert.Contains(t, err.Error(), "preflight events")
	assert.Empty(t, res.Statements)
	assert.Equal(t, StateFailed, res.State)
}
