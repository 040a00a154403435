package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdwh/internal/cli/config"
	"github.com/leapstack-labs/leapdwh/internal/cli/output"
	"github.com/leapstack-labs/leapdwh/internal/objectstore"
	"github.com/leapstack-labs/leapdwh/internal/pipeline"
	"github.com/leapstack-labs/leapdwh/internal/provision"
	"github.com/leapstack-labs/leapdwh/internal/state"
	"github.com/leapstack-labs/leapdwh/pkg/adapter"
	"github.com/leapstack-labs/leapdwh/pkg/catalog"
	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/dialect"
	"github.com/leapstack-labs/leapdwh/pkg/load"
	"github.com/leapstack-labs/leapdwh/pkg/transform"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the configuration the
// root command placed in the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg, ok := config.FromContext(cmd.Context())
	if !ok {
		cfg = getConfig()
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the last loaded configuration, or defaults when none
// was loaded. Only commands run without the root command reach it.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	target := &config.TargetConfig{Type: config.DefaultTargetType}
	config.ApplyTargetDefaults(target)
	return &config.Config{
		Target: target,
		Sources: config.SourcesConfig{
			LogData:     config.DefaultLogData,
			LogJSONPath: config.DefaultLogJSONPath,
			SongData:    config.DefaultSongData,
			Region:      config.DefaultSourceRegion,
		},
		Cluster: config.ClusterConfig{
			Identifier:    config.DefaultClusterID,
			Region:        config.DefaultClusterRegion,
			ClusterType:   config.DefaultClusterType,
			NodeType:      config.DefaultNodeType,
			NumberOfNodes: config.DefaultNodes,
			IAMRoleName:   config.DefaultRoleName,
			IngressCIDR:   config.DefaultIngressCIDR,
			PollInterval:  config.DefaultPollInterval,
			ReadyTimeout:  config.DefaultReadyTimeout,
		},
		Pipeline:     config.PipelineConfig{Preflight: true},
		OutputFormat: config.DefaultOutput,
		LogFormat:    config.DefaultLogFormat,
	}
}

// clusterLookup resolves connection details of a provisioned cluster.
type clusterLookup interface {
	Endpoint(ctx context.Context, id string) (string, int, error)
	AuthorizationReference(ctx context.Context, id string) (string, error)
}

// newClusterLookup is replaced in tests.
var newClusterLookup = func(region string, logger *slog.Logger) (clusterLookup, error) {
	return provision.New(region, logger)
}

// resolveCluster fills an empty Redshift host or role ARN from the
// provisioned cluster.
func resolveCluster(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if !adapter.Clustered(cfg.Target.Type) || (cfg.Target.Host != "" && cfg.Sources.IAMRoleARN != "") {
		return nil
	}
	if err := cfg.ValidateCluster(); err != nil {
		return fmt.Errorf("target.host or sources.iam_role_arn is empty and the cluster cannot be looked up: %w", err)
	}

	lookup, err := newClusterLookup(cfg.Cluster.Region, logger)
	if err != nil {
		return err
	}
	id := cfg.Cluster.Identifier

	if cfg.Target.Host == "" {
		host, port, err := lookup.Endpoint(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to resolve endpoint of %s: %w", id, err)
		}
		cfg.Target.Host = host
		if port != 0 {
			cfg.Target.Port = port
		}
		logger.Info("resolved cluster endpoint", "cluster", id, "host", host, "port", port)
	}
	if cfg.Sources.IAMRoleARN == "" {
		arn, err := lookup.AuthorizationReference(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to resolve iam role of %s: %w", id, err)
		}
		cfg.Sources.IAMRoleARN = arn
		logger.Info("resolved cluster role", "cluster", id, "role_arn", arn)
	}
	return nil
}

// loadConfig maps the sources section onto the loader settings.
func loadConfig(cfg *config.Config) load.Config {
	return load.Config{
		LogData:     cfg.Sources.LogData,
		LogJSONPath: cfg.Sources.LogJSONPath,
		SongData:    cfg.Sources.SongData,
		Region:      cfg.Sources.Region,
		RoleARN:     cfg.Sources.IAMRoleARN,
	}
}

// planners builds the load and transform planners for a dialect.
func planners(cfg *config.Config, d *dialect.Dialect, cat *catalog.Catalog, store *objectstore.Store) (*load.Loader, *transform.Engine) {
	return load.New(cat, d, load.Sources(loadConfig(cfg)), store), transform.New(cat, d)
}

// warehouse is an open pipeline and the resources it holds.
type warehouse struct {
	pipeline *pipeline.Pipeline
	adapter  core.Adapter
	store    core.Store
}

func (w *warehouse) Close() {
	if w.store != nil {
		_ = w.store.Close()
	}
	_ = w.adapter.Close()
}

// openWarehouse connects to the target and assembles a pipeline.
func openWarehouse(ctx context.Context, cc *CommandContext, observer pipeline.Observer) (*warehouse, error) {
	cfg := cc.Cfg
	adp, d, err := connectTarget(ctx, cc)
	if err != nil {
		return nil, err
	}

	w := &warehouse{adapter: adp}
	if cfg.StatePath != "" {
		store, err := openStateStore(cfg.StatePath, cc.Logger)
		if err != nil {
			w.Close()
			return nil, err
		}
		w.store = store
	}

	cat := catalog.New()
	objects := objectstore.New(cfg.Sources.Region, cc.Logger)
	loader, transforms := planners(cfg, d, cat, objects)

	pcfg := pipeline.Config{
		Adapter:      adp,
		Dialect:      d,
		Catalog:      cat,
		Loader:       loader,
		Transforms:   transforms,
		Store:        w.store,
		AtomicStages: cfg.Pipeline.AtomicStages,
		Observer:     observer,
		Target:       targetLabel(cfg.Target),
		Logger:       cc.Logger,
	}
	if cfg.Pipeline.Preflight {
		pcfg.Preflight = pipeline.NewPreflight(objects, cat, cc.Logger)
	}

	w.pipeline, err = pipeline.New(pcfg)
	if err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// connectTarget resolves the cluster if needed and connects to the target.
func connectTarget(ctx context.Context, cc *CommandContext) (core.Adapter, *dialect.Dialect, error) {
	cfg := cc.Cfg
	if err := resolveCluster(ctx, cfg, cc.Logger); err != nil {
		return nil, nil, err
	}

	adp, err := adapter.NewAdapter(cfg.Target.AdapterConfig(), cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	d, err := dialect.Lookup(adp.DialectName())
	if err != nil {
		return nil, nil, err
	}
	if err := adp.Connect(ctx, cfg.Target.AdapterConfig()); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", cfg.Target.Type, err)
	}
	return adp, d, nil
}

// openStateStore opens the run history database, creating its directory.
func openStateStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// targetLabel names the target in run history.
func targetLabel(t *config.TargetConfig) string {
	switch {
	case t.Type == "duckdb" && t.Database == "":
		return "duckdb::memory:"
	case t.Type == "duckdb":
		return "duckdb:" + t.Database
	default:
		return fmt.Sprintf("%s:%s:%d/%s", t.Type, t.Host, t.Port, t.Database)
	}
}
