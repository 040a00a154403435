package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapdwh/pkg/adapter"
)

var (
	outputFormats = []string{"auto", "text", "markdown", "json"}
	logFormats    = []string{"text", "json"}
)

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	if !slices.Contains(outputFormats, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (expected auto, text, markdown or json)", c.OutputFormat)
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		return fmt.Errorf("invalid log_format %q (expected text or json)", c.LogFormat)
	}
	return ValidateTarget(c.Target)
}

// ValidateTarget checks that the target names a registered adapter.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Type == "" {
		return errors.New("target type is required")
	}
	_, err := adapter.Lookup(t.Type)
	return err
}

// ValidateSources checks the settings a load needs.
func (c *Config) ValidateSources() error {
	var errs []error
	if c.Sources.LogData == "" {
		errs = append(errs, errors.New("sources.log_data is required"))
	}
	if c.Sources.SongData == "" {
		errs = append(errs, errors.New("sources.song_data is required"))
	}
	if c.Target.Type == "redshift" && c.Sources.Region == "" {
		errs = append(errs, errors.New("sources.region is required for redshift"))
	}
	return errors.Join(errs...)
}

// ValidateCluster checks the settings provisioning needs.
func (c *Config) ValidateCluster() error {
	var errs []error
	if c.Cluster.Identifier == "" {
		errs = append(errs, errors.New("cluster.identifier is required"))
	}
	if c.Cluster.Region == "" {
		errs = append(errs, errors.New("cluster.region is required"))
	}
	if c.Cluster.IAMRoleName == "" {
		errs = append(errs, errors.New("cluster.iam_role_name is required"))
	}
	if c.Cluster.ClusterType == "multi-node" && c.Cluster.NumberOfNodes < 2 {
		errs = append(errs, fmt.Errorf("cluster.number_of_nodes must be at least 2 for multi-node, got %d", c.Cluster.NumberOfNodes))
	}
	return errors.Join(errs...)
}

// ValidateCredentials checks the master credentials a new cluster needs.
func (c *Config) ValidateCredentials() error {
	var errs []error
	if c.Target.User == "" {
		errs = append(errs, errors.New("target.user is required"))
	}
	if c.Target.Password == "" {
		errs = append(errs, errors.New("target.password is required"))
	}
	return errors.Join(errs...)
}
