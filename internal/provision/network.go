package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
)

const errCodeDuplicatePermission = "InvalidPermission.Duplicate"

// OpenIngress allows TCP traffic on port from cidr through the default
// security group of the cluster's VPC. An existing identical rule is kept.
func (p *Provisioner) OpenIngress(ctx context.Context, vpcID string, port int, cidr string) error {
	out, err := p.ec2.DescribeSecurityGroupsWithContext(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []*ec2.Filter{
			{Name: aws.String("vpc-id"), Values: aws.StringSlice([]string{vpcID})},
			{Name: aws.String("group-name"), Values: aws.StringSlice([]string{"default"})},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to describe security groups of %s: %w", vpcID, err)
	}
	if len(out.SecurityGroups) == 0 {
		return fmt.Errorf("vpc %s has no default security group", vpcID)
	}
	groupID := aws.StringValue(out.SecurityGroups[0].GroupId)

	p.logger.Info("authorizing ingress", "group", groupID, "cidr", cidr, "port", port)
	_, err = p.ec2.AuthorizeSecurityGroupIngressWithContext(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:    aws.String(groupID),
		IpProtocol: aws.String("tcp"),
		CidrIp:     aws.String(cidr),
		FromPort:   aws.Int64(int64(port)),
		ToPort:     aws.Int64(int64(port)),
	})
	switch {
	case isCode(err, errCodeDuplicatePermission):
		p.logger.Info("ingress rule already present", "group", groupID)
	case err != nil:
		return fmt.Errorf("failed to authorize ingress on %s: %w", groupID, err)
	}
	return nil
}
