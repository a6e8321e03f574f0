package backends

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"beacon-network/internal/common/config"
	"beacon-network/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fixtures
// ==========================

type fakeRegistry struct {
	mu        sync.Mutex
	changes   [][]string
	refreshes int
}

func (r *fakeRegistry) ApplyBackendListChange(_ context.Context, urls []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, urls)
}

func (r *fakeRegistry) Refresh(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
}

func (r *fakeRegistry) snapshot() ([][]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.changes...), r.refreshes
}

func writeList(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func createTestSource(t *testing.T, interval time.Duration) (*Source, *fakeRegistry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beacon-network.json")
	reg := &fakeRegistry{}
	src := NewSource(&Config{Path: path, RefreshInterval: interval}, reg, logger.NewTestLogger(t))
	return src, reg, path
}

// ==========================
// List file
// ==========================

func TestReadList(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "ordered urls",
			content: `["https://b.example.org/api", "https://a.example.org/api"]`,
			want:    []string{"https://b.example.org/api", "https://a.example.org/api"},
		},
		{
			name:    "normalizes and drops repeats",
			content: `[" https://a.example.org/api/ ", "", "https://a.example.org/api"]`,
			want:    []string{"https://a.example.org/api"},
		},
		{
			name:    "empty array",
			content: `[]`,
			want:    []string{},
		},
		{
			name:    "not an array",
			content: `{"backends":[]}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "list.json")
			writeList(t, path, tt.content)

			got, err := ReadList(path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidList)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadList_MissingFile(t *testing.T) {
	_, err := ReadList(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidList)
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(
		config.NetworkConfig{ConfigDir: "/etc/beacon", BackendsFile: "beacon-network.json"},
		config.MetadataConfig{RefreshInterval: 60},
	)
	assert.Equal(t, "/etc/beacon/beacon-network.json", cfg.Path)
	assert.Equal(t, time.Hour, cfg.RefreshInterval)
}

// ==========================
// Source
// ==========================

func TestSource_LoadSkipsUnchangedList(t *testing.T) {
	src, reg, path := createTestSource(t, 0)
	writeList(t, path, `["https://a.example.org/api"]`)

	require.NoError(t, src.Load(context.Background()))
	require.NoError(t, src.Load(context.Background()))

	changes, _ := reg.snapshot()
	assert.Len(t, changes, 1)
	assert.Equal(t, []string{"https://a.example.org/api"}, src.Backends())
}

func TestSource_LoadEmptyListIsApplied(t *testing.T) {
	src, reg, path := createTestSource(t, 0)
	writeList(t, path, `[]`)

	require.NoError(t, src.Load(context.Background()))

	changes, _ := reg.snapshot()
	require.Len(t, changes, 1)
	assert.Empty(t, changes[0])
}

func TestSource_WatchAppliesFileChanges(t *testing.T) {
	src, reg, path := createTestSource(t, 0)
	writeList(t, path, `["https://a.example.org/api"]`)
	require.NoError(t, src.Load(context.Background()))

	require.NoError(t, src.Start(context.Background()))
	defer src.Stop()

	writeList(t, path, `["https://a.example.org/api","https://b.example.org/api"]`)

	assert.Eventually(t, func() bool {
		changes, _ := reg.snapshot()
		return len(changes) == 2
	}, 2*time.Second, 10*time.Millisecond)

	changes, _ := reg.snapshot()
	assert.Equal(t, []string{"https://a.example.org/api", "https://b.example.org/api"}, changes[1])
}

func TestSource_InvalidFileKeepsCurrentList(t *testing.T) {
	src, reg, path := createTestSource(t, 0)
	writeList(t, path, `["https://a.example.org/api"]`)
	require.NoError(t, src.Load(context.Background()))

	require.NoError(t, src.Start(context.Background()))
	defer src.Stop()

	writeList(t, path, `["https://a.example.org/api",`)
	// A later valid write proves the loop survived the broken one.
	time.Sleep(50 * time.Millisecond)
	writeList(t, path, `["https://c.example.org/api"]`)

	assert.Eventually(t, func() bool {
		changes, _ := reg.snapshot()
		return len(changes) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"https://c.example.org/api"}, src.Backends())
}

func TestSource_IgnoresOtherFiles(t *testing.T) {
	src, reg, path := createTestSource(t, 0)
	writeList(t, path, `["https://a.example.org/api"]`)
	require.NoError(t, src.Load(context.Background()))

	require.NoError(t, src.Start(context.Background()))
	defer src.Stop()

	writeList(t, filepath.Join(filepath.Dir(path), "other.json"), `["https://x.example.org/api"]`)
	time.Sleep(100 * time.Millisecond)

	changes, _ := reg.snapshot()
	assert.Len(t, changes, 1)
}

func TestSource_PeriodicRefresh(t *testing.T) {
	src, reg, path := createTestSource(t, 20*time.Millisecond)
	writeList(t, path, `[]`)

	require.NoError(t, src.Start(context.Background()))

	assert.Eventually(t, func() bool {
		_, refreshes := reg.snapshot()
		return refreshes >= 2
	}, 2*time.Second, 10*time.Millisecond)

	src.Stop()
	_, stopped := reg.snapshot()
	time.Sleep(60 * time.Millisecond)
	_, after := reg.snapshot()
	assert.Equal(t, stopped, after, "no refresh after Stop")
}

func TestSource_StartFailsForMissingDirectory(t *testing.T) {
	reg := &fakeRegistry{}
	src := NewSource(&Config{Path: filepath.Join(t.TempDir(), "missing", "list.json")}, reg, logger.NewNoOpLogger())
	assert.Error(t, src.Start(context.Background()))
	src.Stop()
}
