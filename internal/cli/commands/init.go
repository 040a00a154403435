package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapdwh/internal/cli/config"
	"github.com/leapstack-labs/leapdwh/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var local bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter leapdwh.yaml",
		Long: `Write a starter leapdwh.yaml with every section filled with its defaults.

The Redshift password is read from DWH_DB_PASSWORD at load time so it never
has to be stored in the file. Use --local for a DuckDB target that runs
against a local copy of the data.`,
		Example: `  # Initialize in current directory
  leapdwh init

  # Initialize a local DuckDB project in a new directory
  leapdwh init my-warehouse --local

  # Force overwrite existing config
  leapdwh init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			r := NewCommandContext(cmd).Renderer
			return runInit(r, dir, local, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&local, "local", false, "Use a local DuckDB target instead of Redshift")

	return cmd
}

func runInit(r *output.Renderer, dir string, local, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.DefaultConfigFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.DefaultConfigFile)
	}

	content, err := starterConfig(local)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	if err := os.WriteFile(configPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r.StatusLine(config.DefaultConfigFile, "success", "")
	r.Println("")
	r.Success("leapdwh project initialized!")
	r.Println("")
	r.Println("Next steps:")
	if local {
		r.Println("  1. Point sources at local copies of log_data and song_data")
		r.Println("  2. Run 'leapdwh run' to build the warehouse")
	} else {
		r.Println("  1. Export DWH_DB_PASSWORD")
		r.Println("  2. Run 'leapdwh cluster create' to provision the cluster")
		r.Println("  3. Run 'leapdwh run' to build the warehouse")
	}
	return nil
}

// starterConfig renders the starter document.
func starterConfig(local bool) ([]byte, error) {
	target := mapping(
		"type", scalar("redshift"),
		"host", scalar(""),
		"port", scalar(strconv.Itoa(config.DefaultPort)),
		"database", scalar(config.DefaultDatabase),
		"user", scalar(config.DefaultUser),
		"password", scalar("${DWH_DB_PASSWORD}"),
		"schema", scalar(config.DefaultSchema),
	)
	target.Content[2].HeadComment = "Leave empty to look it up from the cluster."
	sources := mapping(
		"log_data", scalar(config.DefaultLogData),
		"log_jsonpath", scalar(config.DefaultLogJSONPath),
		"song_data", scalar(config.DefaultSongData),
		"region", scalar(config.DefaultSourceRegion),
		"iam_role_arn", scalar(""),
	)
	if local {
		target = mapping(
			"type", scalar("duckdb"),
			"database", scalar("warehouse.duckdb"),
			"schema", scalar(config.DefaultSchemaForType("duckdb")),
		)
		sources = mapping(
			"log_data", scalar("data/log_data"),
			"log_jsonpath", scalar("data/log_json_path.json"),
			"song_data", scalar("data/song_data"),
		)
	}

	doc := mapping(
		"target", target,
		"sources", sources,
		"cluster", mapping(
			"identifier", scalar(config.DefaultClusterID),
			"region", scalar(config.DefaultClusterRegion),
			"cluster_type", scalar(config.DefaultClusterType),
			"node_type", scalar(config.DefaultNodeType),
			"number_of_nodes", scalar(strconv.Itoa(config.DefaultNodes)),
			"iam_role_name", scalar(config.DefaultRoleName),
			"ingress_cidr", scalar(config.DefaultIngressCIDR),
			"poll_interval", scalar(config.DefaultPollInterval.String()),
			"ready_timeout", scalar(config.DefaultReadyTimeout.String()),
		),
		"pipeline", mapping(
			"atomic_stages", scalar("false"),
			"preflight", scalar("true"),
		),
		"state_path", scalar(".leapdwh/state.db"),
	)
	doc.Content[0].HeadComment = "leapdwh configuration"
	doc.Content[4].HeadComment = "Only used by 'leapdwh cluster'."
	doc.Content[8].HeadComment = "Run history; remove to disable."

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{doc}}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mapping(kv ...any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i < len(kv); i += 2 {
		n.Content = append(n.Content, scalar(kv[i].(string)), kv[i+1].(*yaml.Node))
	}
	return n
}

func scalar(v string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: v}
	switch v {
	case "true", "false":
		n.Tag = "!!bool"
	default:
		if _, err := strconv.Atoi(v); err == nil {
			n.Tag = "!!int"
		} else {
			n.Tag = "!!str"
		}
	}
	return n
}
