// Package config provides configuration management for the leapdwh CLI.
//
// The warehouse target type is shared with the adapters through
// pkg/core and re-exported here via a type alias for convenience.
package config

import (
	"time"

	"github.com/leapstack-labs/leapdwh/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
// This allows CLI code to use config.TargetConfig without importing pkg/core.
type TargetConfig = core.TargetConfig

// SourcesConfig locates the raw data in object storage.
type SourcesConfig struct {
	LogData     string `koanf:"log_data"`
	LogJSONPath string `koanf:"log_jsonpath"`
	SongData    string `koanf:"song_data"`
	Region      string `koanf:"region"`
	// IAMRoleARN authorizes the warehouse to read the sources. Resolved
	// from the cluster when empty.
	IAMRoleARN string `koanf:"iam_role_arn"`
}

// ClusterConfig describes the Redshift cluster to provision. Database
// name, port and master credentials come from the target.
type ClusterConfig struct {
	Identifier    string        `koanf:"identifier"`
	Region        string        `koanf:"region"`
	ClusterType   string        `koanf:"cluster_type"`
	NodeType      string        `koanf:"node_type"`
	NumberOfNodes int           `koanf:"number_of_nodes"`
	IAMRoleName   string        `koanf:"iam_role_name"`
	IngressCIDR   string        `koanf:"ingress_cidr"`
	PollInterval  time.Duration `koanf:"poll_interval"`
	ReadyTimeout  time.Duration `koanf:"ready_timeout"`
}

// PipelineConfig tunes how runs execute.
type PipelineConfig struct {
	AtomicStages bool `koanf:"atomic_stages"`
	Preflight    bool `koanf:"preflight"`
}

// Config holds all CLI configuration options.
type Config struct {
	Target       *TargetConfig  `koanf:"target"`
	Sources      SourcesConfig  `koanf:"sources"`
	Cluster      ClusterConfig  `koanf:"cluster"`
	Pipeline     PipelineConfig `koanf:"pipeline"`
	StatePath    string         `koanf:"state_path"` // empty disables run history
	OutputFormat string         `koanf:"output"`
	LogFormat    string         `koanf:"log_format"`
	Verbose      bool           `koanf:"verbose"`
}

// Default configuration values.
const (
	DefaultConfigFile = "leapdwh.yaml"
	DefaultTargetType = "redshift"
	DefaultPort       = 5439
	DefaultDatabase   = "dwh"
	DefaultUser       = "dwhuser"
	DefaultSchema     = "public"

	DefaultLogData      = "s3://udacity-dend/log_data"
	DefaultLogJSONPath  = "s3://udacity-dend/log_json_path.json"
	DefaultSongData     = "s3://udacity-dend/song_data"
	DefaultSourceRegion = "us-west-2"

	DefaultClusterID     = "dwhCluster"
	DefaultClusterRegion = "us-east-1"
	DefaultClusterType   = "multi-node"
	DefaultNodeType      = "dc2.large"
	DefaultNodes         = 4
	DefaultRoleName      = "dwhRole"
	DefaultIngressCIDR   = "0.0.0.0/0"
	DefaultPollInterval  = 15 * time.Second
	DefaultReadyTimeout  = 30 * time.Minute

	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat = "text"
)

// DefaultSchemaForType returns the default schema for a target type.
func DefaultSchemaForType(targetType string) string {
	if targetType == "duckdb" {
		return "main"
	}
	return DefaultSchema
}
