package provision

import (
	"context"
	"fmt"
	"time"
)

// Up creates the role and cluster, waits for the cluster and opens the
// port to clients. It is safe to run against resources that already exist.
func (p *Provisioner) Up(ctx context.Context, spec Spec, timeout time.Duration) (*Cluster, error) {
	roleARN, err := p.CreateRole(ctx, spec.RoleName)
	if err != nil {
		return nil, err
	}
	if err := p.CreateCluster(ctx, spec, roleARN); err != nil {
		return nil, err
	}
	if err := p.WaitUntilReady(ctx, spec.Identifier, timeout); err != nil {
		return nil, err
	}

	cluster, err := p.Describe(ctx, spec.Identifier)
	if err != nil {
		return nil, err
	}
	port := cluster.Port
	if port == 0 {
		port = spec.Port
	}
	if err := p.OpenIngress(ctx, cluster.VpcID, port, spec.IngressCIDR); err != nil {
		return nil, err
	}
	return cluster, nil
}

// Down deletes the cluster, then the role.
func (p *Provisioner) Down(ctx context.Context, spec Spec, timeout time.Duration) error {
	if err := p.DeleteCluster(ctx, spec.Identifier, timeout); err != nil {
		return err
	}
	if err := p.DeleteRole(ctx, spec.RoleName); err != nil {
		return fmt.Errorf("cluster deleted but role cleanup failed: %w", err)
	}
	return nil
}
