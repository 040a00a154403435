package provision

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/iam"
)

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Action    string            `json:"Action"`
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal"`
}

func assumeRolePolicy() (string, error) {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Action:    "sts:AssumeRole",
			Effect:    "Allow",
			Principal: map[string]string{"Service": "redshift.amazonaws.com"},
		}},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CreateRole creates a role Redshift can assume, attaches S3 read access
// and returns the role ARN. An existing role is reused.
func (p *Provisioner) CreateRole(ctx context.Context, name string) (string, error) {
	policy, err := assumeRolePolicy()
	if err != nil {
		return "", fmt.Errorf("failed to render trust policy: %w", err)
	}

	p.logger.Info("creating iam role", "role", name)
	_, err = p.iam.CreateRoleWithContext(ctx, &iam.CreateRoleInput{
		Path:                     aws.String("/"),
		RoleName:                 aws.String(name),
		Description:              aws.String("Allows Redshift clusters to call AWS services on your behalf."),
		AssumeRolePolicyDocument: aws.String(policy),
	})
	switch {
	case isCode(err, iam.ErrCodeEntityAlreadyExistsException):
		p.logger.Info("iam role already exists", "role", name)
	case err != nil:
		return "", fmt.Errorf("failed to create role %s: %w", name, err)
	}

	p.logger.Info("attaching policy", "role", name, "policy", S3ReadOnlyPolicy)
	if _, err := p.iam.AttachRolePolicyWithContext(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(name),
		PolicyArn: aws.String(S3ReadOnlyPolicy),
	}); err != nil {
		return "", fmt.Errorf("failed to attach policy to %s: %w", name, err)
	}

	out, err := p.iam.GetRoleWithContext(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to get role %s: %w", name, err)
	}
	return aws.StringValue(out.Role.Arn), nil
}

// DeleteRole detaches the S3 policy and deletes the role. A missing role
// or attachment is not an error.
func (p *Provisioner) DeleteRole(ctx context.Context, name string) error {
	p.logger.Info("detaching policy", "role", name, "policy", S3ReadOnlyPolicy)
	_, err := p.iam.DetachRolePolicyWithContext(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(name),
		PolicyArn: aws.String(S3ReadOnlyPolicy),
	})
	if err != nil && !isCode(err, iam.ErrCodeNoSuchEntityException) {
		return fmt.Errorf("failed to detach policy from %s: %w", name, err)
	}

	p.logger.Info("deleting iam role", "role", name)
	_, err = p.iam.DeleteRoleWithContext(ctx, &iam.DeleteRoleInput{RoleName: aws.String(name)})
	if err != nil && !isCode(err, iam.ErrCodeNoSuchEntityException) {
		return fmt.Errorf("failed to delete role %s: %w", name, err)
	}
	return nil
}
