package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdwh/internal/cli/config"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name     string
		setupDir func(t *testing.T, dir string)
		args     []string
		wantErr  string
	}{
		{
			name: "init empty directory",
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "leapdwh.yaml"), []byte("existing"), 0600))
			},
			wantErr: "leapdwh.yaml already exists",
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "leapdwh.yaml"), []byte("existing"), 0600))
			},
			args: []string{"--force"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config.ResetConfig()
			dir := t.TempDir()
			if tt.setupDir != nil {
				tt.setupDir(t, dir)
			}

			stdout, _, err := execute(t, NewInitCommand(), append([]string{dir}, tt.args...)...)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, stdout, "leapdwh project initialized!")

			content, err := os.ReadFile(filepath.Join(dir, "leapdwh.yaml"))
			require.NoError(t, err)
			assert.NotEqual(t, "existing", string(content))
		})
	}
}

func TestInit_CreatesDirectory(t *testing.T) {
	config.ResetConfig()
	dir := filepath.Join(t.TempDir(), "nested", "project")

	_, _, err := execute(t, NewInitCommand(), dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "leapdwh.yaml"))
}

func TestInit_RedshiftConfigLoads(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Setenv("DWH_DB_PASSWORD", "from-env")
	dir := t.TempDir()

	_, _, err := execute(t, NewInitCommand(), dir)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "leapdwh.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "# leapdwh configuration")
	assert.Contains(t, string(content), "# Leave empty to look it up from the cluster.")

	cfg, err := config.LoadConfig(filepath.Join(dir, "leapdwh.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, "redshift", cfg.Target.Type)
	assert.Equal(t, "from-env", cfg.Target.Password)
	assert.Equal(t, 5439, cfg.Target.Port)
	assert.Equal(t, config.DefaultLogData, cfg.Sources.LogData)
	assert.Equal(t, 4, cfg.Cluster.NumberOfNodes)
	assert.Equal(t, 30*time.Minute, cfg.Cluster.ReadyTimeout)
	assert.Equal(t, 15*time.Second, cfg.Cluster.PollInterval)
	assert.True(t, cfg.Pipeline.Preflight)
	assert.False(t, cfg.Pipeline.AtomicStages)
	assert.Equal(t, filepath.Join(dir, ".leapdwh", "state.db"), cfg.StatePath)
	require.NoError(t, cfg.ValidateCluster())
	require.NoError(t, cfg.ValidateCredentials())
}

func TestInit_LocalConfigLoads(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	dir := t.TempDir()

	_, _, err := execute(t, NewInitCommand(), dir, "--local")
	require.NoError(t, err)

	cfg, err := config.LoadConfig(filepath.Join(dir, "leapdwh.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, "main", cfg.Target.Schema)
	assert.Equal(t, filepath.Join(dir, "warehouse.duckdb"), cfg.Target.Database)
	assert.Equal(t, "data/log_data", cfg.Sources.LogData)
}
