package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdwh/internal/cli/config"
	"github.com/leapstack-labs/leapdwh/internal/cli/output"
	"github.com/leapstack-labs/leapdwh/internal/provision"
	"github.com/leapstack-labs/leapdwh/pkg/adapter"
)

// clusterProvisioner manages the cluster lifecycle.
type clusterProvisioner interface {
	Up(ctx context.Context, spec provision.Spec, timeout time.Duration) (*provision.Cluster, error)
	Down(ctx context.Context, spec provision.Spec, timeout time.Duration) error
	Describe(ctx context.Context, id string) (*provision.Cluster, error)
}

// newProvisioner is replaced in tests.
var newProvisioner = func(cfg config.ClusterConfig, logger *slog.Logger) (clusterProvisioner, error) {
	p, err := provision.New(cfg.Region, logger)
	if err != nil {
		return nil, err
	}
	p.SetPollInterval(cfg.PollInterval)
	return p, nil
}

// NewClusterCommand creates the cluster command group.
func NewClusterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Provision and tear down the Redshift cluster",
		Long: `Manage the Redshift cluster that hosts the warehouse, together with the
IAM role it reads S3 with and the ingress rule that lets clients reach it.

Cluster settings come from the cluster section of leapdwh.yaml; database
name, port and master credentials come from the target section.`,
	}
	cmd.PersistentFlags().String("cluster-id", "", "Cluster identifier")
	cmd.PersistentFlags().String("region", "", "AWS region of the cluster")

	cmd.AddCommand(newClusterCreateCommand())
	cmd.AddCommand(newClusterStatusCommand())
	cmd.AddCommand(newClusterDeleteCommand())
	return cmd
}

func newClusterCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the IAM role and cluster and wait until it is available",
		Example: `  # Create the configured cluster
  DWH_DB_PASSWORD=... leapdwh cluster create`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			if err := validateProvisioning(cc.Cfg, true); err != nil {
				return err
			}
			p, err := newProvisioner(cc.Cfg.Cluster, cc.Logger)
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() != output.ModeJSON {
				r.Muted(fmt.Sprintf("Creating cluster %s, waiting up to %s...", cc.Cfg.Cluster.Identifier, cc.Cfg.Cluster.ReadyTimeout))
			}
			cluster, err := p.Up(cmd.Context(), clusterSpec(cc.Cfg), cc.Cfg.Cluster.ReadyTimeout)
			if err != nil {
				return err
			}
			return renderCluster(r, cluster, true)
		},
	}
}

func newClusterStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cluster status, endpoint and role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			if err := validateProvisioning(cc.Cfg, false); err != nil {
				return err
			}
			p, err := newProvisioner(cc.Cfg.Cluster, cc.Logger)
			if err != nil {
				return err
			}
			cluster, err := p.Describe(cmd.Context(), cc.Cfg.Cluster.Identifier)
			if err != nil {
				return err
			}
			return renderCluster(cc.Renderer, cluster, false)
		},
	}
}

func newClusterDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the cluster without a final snapshot, then its IAM role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			if err := validateProvisioning(cc.Cfg, false); err != nil {
				return err
			}
			p, err := newProvisioner(cc.Cfg.Cluster, cc.Logger)
			if err != nil {
				return err
			}
			if err := p.Down(cmd.Context(), clusterSpec(cc.Cfg), cc.Cfg.Cluster.ReadyTimeout); err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(output.ClusterInfo{Identifier: cc.Cfg.Cluster.Identifier, Status: "deleted"})
			}
			r.Success(fmt.Sprintf("Cluster %s and role %s deleted", cc.Cfg.Cluster.Identifier, cc.Cfg.Cluster.IAMRoleName))
			return nil
		},
	}
}

func validateProvisioning(cfg *config.Config, creating bool) error {
	if !adapter.Clustered(cfg.Target.Type) {
		return fmt.Errorf("cluster commands need a redshift target, got %q", cfg.Target.Type)
	}
	errs := []error{cfg.ValidateCluster()}
	if creating {
		errs = append(errs, cfg.ValidateCredentials())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid cluster configuration: %w", err)
	}
	return nil
}

// clusterSpec combines the cluster section with the target's database
// settings.
func clusterSpec(cfg *config.Config) provision.Spec {
	return provision.Spec{
		Identifier:     cfg.Cluster.Identifier,
		ClusterType:    cfg.Cluster.ClusterType,
		NodeType:       cfg.Cluster.NodeType,
		NumberOfNodes:  cfg.Cluster.NumberOfNodes,
		DBName:         cfg.Target.Database,
		MasterUser:     cfg.Target.User,
		MasterPassword: cfg.Target.Password,
		Port:           cfg.Target.Port,
		RoleName:       cfg.Cluster.IAMRoleName,
		IngressCIDR:    cfg.Cluster.IngressCIDR,
	}
}

func renderCluster(r *output.Renderer, c *provision.Cluster, created bool) error {
	info := output.ClusterInfo{
		Identifier: c.Identifier,
		Status:     c.Status,
		Host:       c.Host,
		Port:       c.Port,
		DBName:     c.DBName,
		NodeType:   c.NodeType,
		Nodes:      c.Nodes,
		VpcID:      c.VpcID,
		RoleARNs:   c.RoleARNs,
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(info)
	}

	if created {
		r.Success(fmt.Sprintf("Cluster %s is %s", info.Identifier, info.Status))
	} else {
		r.Header(1, "Cluster "+info.Identifier)
	}
	r.KeyValue("Status", info.Status)
	if info.Host != "" {
		r.KeyValue("Endpoint", fmt.Sprintf("%s:%d", info.Host, info.Port))
	}
	r.KeyValue("Database", info.DBName)
	r.KeyValue("Nodes", fmt.Sprintf("%d x %s", info.Nodes, info.NodeType))
	if len(info.RoleARNs) > 0 {
		r.KeyValue("Role ARN", strings.Join(info.RoleARNs, ", "))
	}
	if created {
		r.Println("")
		r.Muted("Set target.host and sources.iam_role_arn to these values, or leave them empty to resolve them from the cluster.")
	}
	return nil
}
