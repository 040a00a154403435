package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/redshift"
)

// StatusAvailable is the status of a cluster accepting connections.
const StatusAvailable = "available"

// CreateCluster starts creating a cluster that assumes roleARN. It returns
// without waiting; an existing cluster with the same identifier is kept.
func (p *Provisioner) CreateCluster(ctx context.Context, spec Spec, roleARN string) error {
	in := &redshift.CreateClusterInput{
		ClusterIdentifier:  aws.String(spec.Identifier),
		ClusterType:        aws.String(spec.ClusterType),
		NodeType:           aws.String(spec.NodeType),
		DBName:             aws.String(spec.DBName),
		MasterUsername:     aws.String(spec.MasterUser),
		MasterUserPassword: aws.String(spec.MasterPassword),
		IamRoles:           aws.StringSlice([]string{roleARN}),
	}
	if spec.ClusterType == "multi-node" {
		in.NumberOfNodes = aws.Int64(int64(spec.NumberOfNodes))
	}
	if spec.Port > 0 {
		in.Port = aws.Int64(int64(spec.Port))
	}

	p.logger.Info("creating cluster", "cluster", spec.Identifier,
		"type", spec.ClusterType, "node_type", spec.NodeType, "nodes", spec.NumberOfNodes)
	_, err := p.redshift.CreateClusterWithContext(ctx, in)
	switch {
	case isCode(err, redshift.ErrCodeClusterAlreadyExistsFault):
		p.logger.Info("cluster already exists", "cluster", spec.Identifier)
	case err != nil:
		return fmt.Errorf("failed to create cluster %s: %w", spec.Identifier, err)
	}
	return nil
}

// Describe returns the current state of a cluster.
func (p *Provisioner) Describe(ctx context.Context, id string) (*Cluster, error) {
	out, err := p.redshift.DescribeClustersWithContext(ctx, &redshift.DescribeClustersInput{
		ClusterIdentifier: aws.String(id),
	})
	if isCode(err, redshift.ErrCodeClusterNotFoundFault) {
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to describe cluster %s: %w", id, err)
	}
	if len(out.Clusters) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, id)
	}

	c := out.Clusters[0]
	cluster := &Cluster{
		Identifier: aws.StringValue(c.ClusterIdentifier),
		Status:     aws.StringValue(c.ClusterStatus),
		VpcID:      aws.StringValue(c.VpcId),
		DBName:     aws.StringValue(c.DBName),
		NodeType:   aws.StringValue(c.NodeType),
		Nodes:      int(aws.Int64Value(c.NumberOfNodes)),
	}
	if c.Endpoint != nil {
		cluster.Host = aws.StringValue(c.Endpoint.Address)
		cluster.Port = int(aws.Int64Value(c.Endpoint.Port))
	}
	for _, r := range c.IamRoles {
		cluster.RoleARNs = append(cluster.RoleARNs, aws.StringValue(r.IamRoleArn))
	}
	return cluster, nil
}

// WaitUntilReady blocks until the cluster is available or timeout passes.
func (p *Provisioner) WaitUntilReady(ctx context.Context, id string, timeout time.Duration) error {
	p.logger.Info("waiting for cluster", "cluster", id, "timeout", timeout)
	err := p.wait(ctx, timeout, func(ctx aws.Context, opts ...request.WaiterOption) error {
		return p.redshift.WaitUntilClusterAvailableWithContext(ctx,
			&redshift.DescribeClustersInput{ClusterIdentifier: aws.String(id)}, opts...)
	})
	if err != nil {
		notReady := &ClusterNotReadyError{ClusterID: id, Err: err}
		if c, derr := p.Describe(context.WithoutCancel(ctx), id); derr == nil {
			notReady.Status = c.Status
		}
		return notReady
	}
	p.logger.Info("cluster available", "cluster", id)
	return nil
}

// Endpoint returns the address clients connect to.
func (p *Provisioner) Endpoint(ctx context.Context, id string) (string, int, error) {
	c, err := p.Describe(ctx, id)
	if err != nil {
		return "", 0, err
	}
	if c.Status != StatusAvailable || c.Host == "" {
		return "", 0, &ClusterNotReadyError{ClusterID: id, Status: c.Status, Err: errors.New("no endpoint yet")}
	}
	return c.Host, c.Port, nil
}

// AuthorizationReference returns the ARN of the role the cluster uses to
// read from S3.
func (p *Provisioner) AuthorizationReference(ctx context.Context, id string) (string, error) {
	c, err := p.Describe(ctx, id)
	if err != nil {
		return "", err
	}
	if len(c.RoleARNs) == 0 {
		return "", fmt.Errorf("cluster %s has no iam role attached", id)
	}
	return c.RoleARNs[0], nil
}

// DeleteCluster deletes a cluster without a final snapshot and waits
// until it is gone. A missing cluster is not an error.
func (p *Provisioner) DeleteCluster(ctx context.Context, id string, timeout time.Duration) error {
	p.logger.Info("deleting cluster", "cluster", id)
	_, err := p.redshift.DeleteClusterWithContext(ctx, &redshift.DeleteClusterInput{
		ClusterIdentifier:        aws.String(id),
		SkipFinalClusterSnapshot: aws.Bool(true),
	})
	if isCode(err, redshift.ErrCodeClusterNotFoundFault) {
		p.logger.Info("cluster already deleted", "cluster", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete cluster %s: %w", id, err)
	}

	err = p.wait(ctx, timeout, func(ctx aws.Context, opts ...request.WaiterOption) error {
		return p.redshift.WaitUntilClusterDeletedWithContext(ctx,
			&redshift.DescribeClustersInput{ClusterIdentifier: aws.String(id)}, opts...)
	})
	if err != nil {
		return fmt.Errorf("failed waiting for cluster %s to be deleted: %w", id, err)
	}
	p.logger.Info("cluster deleted", "cluster", id)
	return nil
}

// wait runs an SDK waiter polling every pollInterval until timeout.
func (p *Provisioner) wait(ctx context.Context, timeout time.Duration, waiter func(aws.Context, ...request.WaiterOption) error) error {
	attempts := 120
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		attempts = int(timeout/p.pollInterval) + 1
	}
	return waiter(ctx,
		request.WithWaiterDelay(request.ConstantWaiterDelay(p.pollInterval)),
		request.WithWaiterMaxAttempts(attempts),
	)
}
