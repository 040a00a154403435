package provision

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"
	"github.com/aws/aws-sdk-go/service/redshift"
	"github.com/aws/aws-sdk-go/service/redshift/redshiftiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdwh/internal/testutil"
)

const roleARN = "arn:aws:iam::123456789012:role/dwhRole"

type fakeRedshift struct {
	redshiftiface.RedshiftAPI

	createErr   error
	deleteErr   error
	waitErr     error
	clusters    []*redshift.Cluster
	describeErr error

	created     *redshift.CreateClusterInput
	deleted     *redshift.DeleteClusterInput
	waitedReady bool
	waitedGone  bool
	waitOpts    int
}

func (f *fakeRedshift) CreateClusterWithContext(_ aws.Context, in *redshift.CreateClusterInput, _ ...request.Option) (*redshift.CreateClusterOutput, error) {
	f.created = in
	return &redshift.CreateClusterOutput{}, f.createErr
}

func (f *fakeRedshift) DescribeClustersWithContext(_ aws.Context, _ *redshift.DescribeClustersInput, _ ...request.Option) (*redshift.DescribeClustersOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &redshift.DescribeClustersOutput{Clusters: f.clusters}, nil
}

func (f *fakeRedshift) WaitUntilClusterAvailableWithContext(_ aws.Context, _ *redshift.DescribeClustersInput, opts ...request.WaiterOption) error {
	f.waitedReady = true
	f.waitOpts = len(opts)
	return f.waitErr
}

func (f *fakeRedshift) DeleteClusterWithContext(_ aws.Context, in *redshift.DeleteClusterInput, _ ...request.Option) (*redshift.DeleteClusterOutput, error) {
	f.deleted = in
	return &redshift.DeleteClusterOutput{}, f.deleteErr
}

func (f *fakeRedshift) WaitUntilClusterDeletedWithContext(_ aws.Context, _ *redshift.DescribeClustersInput, _ ...request.WaiterOption) error {
	f.waitedGone = true
	return f.waitErr
}

type fakeIAM struct {
	iamiface.IAMAPI

	createErr error
	detachErr error
	deleteErr error

	trustPolicy string
	attached    string
	calls       []string
}

func (f *fakeIAM) CreateRoleWithContext(_ aws.Context, in *iam.CreateRoleInput, _ ...request.Option) (*iam.CreateRoleOutput, error) {
	f.calls = append(f.calls, "create")
	f.trustPolicy = aws.StringValue(in.AssumeRolePolicyDocument)
	return &iam.CreateRoleOutput{}, f.createErr
}

func (f *fakeIAM) AttachRolePolicyWithContext(_ aws.Context, in *iam.AttachRolePolicyInput, _ ...request.Option) (*iam.AttachRolePolicyOutput, error) {
	f.calls = append(f.calls, "attach")
	f.attached = aws.StringValue(in.PolicyArn)
	return &iam.AttachRolePolicyOutput{}, nil
}

func (f *fakeIAM) GetRoleWithContext(_ aws.Context, in *iam.GetRoleInput, _ ...request.Option) (*iam.GetRoleOutput, error) {
	f.calls = append(f.calls, "get")
	return &iam.GetRoleOutput{Role: &iam.Role{RoleName: in.RoleName, Arn: aws.String(roleARN)}}, nil
}

func (f *fakeIAM) DetachRolePolicyWithContext(_ aws.Context, _ *iam.DetachRolePolicyInput, _ ...request.Option) (*iam.DetachRolePolicyOutput, error) {
	f.calls = append(f.calls, "detach")
	return &iam.DetachRolePolicyOutput{}, f.detachErr
}

func (f *fakeIAM) DeleteRoleWithContext(_ aws.Context, _ *iam.DeleteRoleInput, _ ...request.Option) (*iam.DeleteRoleOutput, error) {
	f.calls = append(f.calls, "delete")
	return &iam.DeleteRoleOutput{}, f.deleteErr
}

type fakeEC2 struct {
	ec2iface.EC2API

	groups     []*ec2.SecurityGroup
	ingressErr error
	ingress    *ec2.AuthorizeSecurityGroupIngressInput
	filters    []*ec2.Filter
}

func (f *fakeEC2) DescribeSecurityGroupsWithContext(_ aws.Context, in *ec2.DescribeSecurityGroupsInput, _ ...request.Option) (*ec2.DescribeSecurityGroupsOutput, error) {
	f.filters = in.Filters
	return &ec2.DescribeSecurityGroupsOutput{SecurityGroups: f.groups}, nil
}

func (f *fakeEC2) AuthorizeSecurityGroupIngressWithContext(_ aws.Context, in *ec2.AuthorizeSecurityGroupIngressInput, _ ...request.Option) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	f.ingress = in
	return &ec2.AuthorizeSecurityGroupIngressOutput{}, f.ingressErr
}

func availableCluster() *redshift.Cluster {
	return &redshift.Cluster{
		ClusterIdentifier: aws.String("dwhCluster"),
		ClusterStatus:     aws.String(StatusAvailable),
		VpcId:             aws.String("vpc-123"),
		DBName:            aws.String("dwh"),
		NodeType:          aws.String("dc2.large"),
		NumberOfNodes:     aws.Int64(4),
		Endpoint: &redshift.Endpoint{
			Address: aws.String("dwhcluster.abc.us-west-2.redshift.amazonaws.com"),
			Port:    aws.Int64(5439),
		},
		IamRoles: []*redshift.ClusterIamRole{{IamRoleArn: aws.String(roleARN)}},
	}
}

func testSpec() Spec {
	return Spec{
		Identifier:     "dwhCluster",
		ClusterType:    "multi-node",
		NodeType:       "dc2.large",
		NumberOfNodes:  4,
		DBName:         "dwh",
		MasterUser:     "dwhuser",
		MasterPassword: "Passw0rd",
		Port:           5439,
		RoleName:       "dwhRole",
		IngressCIDR:    "0.0.0.0/0",
	}
}

type fakes struct {
	rs  *fakeRedshift
	iam *fakeIAM
	ec2 *fakeEC2
	p   *Provisioner
}

func newFakes(t *testing.T) *fakes {
	f := &fakes{
		rs:  &fakeRedshift{clusters: []*redshift.Cluster{availableCluster()}},
		iam: &fakeIAM{},
		ec2: &fakeEC2{groups: []*ec2.SecurityGroup{{GroupId: aws.String("sg-default")}}},
	}
	f.p = NewWithClients(f.rs, f.iam, f.ec2, testutil.NewTestLogger(t))
	f.p.SetPollInterval(time.Second)
	return f
}

func TestCreateRole(t *testing.T) {
	f := newFakes(t)

	arn, err := f.p.CreateRole(context.Background(), "dwhRole")
	require.NoError(t, err)
	assert.Equal(t, roleARN, arn)
	assert.Equal(t, []string{"create", "attach", "get"}, f.iam.calls)
	assert.Equal(t, S3ReadOnlyPolicy, f.iam.attached)

	var doc policyDocument
	require.NoError(t, json.Unmarshal([]byte(f.iam.trustPolicy), &doc))
	require.Len(t, doc.Statement, 1)
	assert.Equal(t, "sts:AssumeRole", doc.Statement[0].Action)
	assert.Equal(t, "redshift.amazonaws.com", doc.Statement[0].Principal["Service"])
}

func TestCreateRole_AlreadyExists(t *testing.T) {
	f := newFakes(t)
	f.iam.createErr = awserr.New(iam.ErrCodeEntityAlreadyExistsException, "role exists", nil)

	arn, err := f.p.CreateRole(context.Background(), "dwhRole")
	require.NoError(t, err)
	assert.Equal(t, roleARN, arn)
}

func TestCreateRole_Fails(t *testing.T) {
	f := newFakes(t)
	f.iam.createErr = awserr.New("AccessDenied", "no", nil)

	_, err := f.p.CreateRole(context.Background(), "dwhRole")
	require.Error(t, err)
	assert.Equal(t, []string{"create"}, f.iam.calls)
}

func TestCreateCluster(t *testing.T) {
	tests := []struct {
		name      string
		spec      func(s *Spec)
		err       error
		wantErr   bool
		wantNodes *int64
	}{
		{name: "multi-node", wantNodes: aws.Int64(4)},
		{name: "single-node omits node count", spec: func(s *Spec) { s.ClusterType = "single-node" }},
		{name: "already exists", err: awserr.New(redshift.ErrCodeClusterAlreadyExistsFault, "exists", nil), wantNodes: aws.Int64(4)},
		{name: "quota exceeded", err: awserr.New(redshift.ErrCodeClusterQuotaExceededFault, "quota", nil), wantErr: true, wantNodes: aws.Int64(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakes(t)
			f.rs.createErr = tt.err
			spec := testSpec()
			if tt.spec != nil {
				tt.spec(&spec)
			}

			err := f.p.CreateCluster(context.Background(), spec, roleARN)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.NotNil(t, f.rs.created)
			assert.Equal(t, tt.wantNodes, f.rs.created.NumberOfNodes)
			assert.Equal(t, []string{roleARN}, aws.StringValueSlice(f.rs.created.IamRoles))
			assert.Equal(t, "dwhuser", aws.StringValue(f.rs.created.MasterUsername))
		})
	}
}

func TestWaitUntilReady(t *testing.T) {
	f := newFakes(t)
	require.NoError(t, f.p.WaitUntilReady(context.Background(), "dwhCluster", time.Minute))
	assert.True(t, f.rs.waitedReady)
	assert.Equal(t, 2, f.rs.waitOpts)
}

func TestWaitUntilReady_Timeout(t *testing.T) {
	f := newFakes(t)
	f.rs.clusters[0].ClusterStatus = aws.String("creating")
	f.rs.waitErr = awserr.New(request.WaiterResourceNotReadyErrorCode, "exceeded wait attempts", nil)

	err := f.p.WaitUntilReady(context.Background(), "dwhCluster", time.Minute)
	require.Error(t, err)

	var notReady *ClusterNotReadyError
	require.True(t, errors.As(err, &notReady))
	assert.Equal(t, "creating", notReady.Status)
	assert.Contains(t, err.Error(), "status creating")
}

func TestEndpointAndRole(t *testing.T) {
	f := newFakes(t)
	ctx := context.Background()

	host, port, err := f.p.Endpoint(ctx, "dwhCluster")
	require.NoError(t, err)
	assert.Equal(t, "dwhcluster.abc.us-west-2.redshift.amazonaws.com", host)
	assert.Equal(t, 5439, port)

	arn, err := f.p.AuthorizationReference(ctx, "dwhCluster")
	require.NoError(t, err)
	assert.Equal(t, roleARN, arn)
}

func TestEndpoint_NotAvailable(t *testing.T) {
	f := newFakes(t)
	f.rs.clusters[0].ClusterStatus = aws.String("creating")
	f.rs.clusters[0].Endpoint = nil

	_, _, err := f.p.Endpoint(context.Background(), "dwhCluster")
	var notReady *ClusterNotReadyError
	assert.True(t, errors.As(err, &notReady))
}

func TestDescribe_NotFound(t *testing.T) {
	f := newFakes(t)
	f.rs.describeErr = awserr.New(redshift.ErrCodeClusterNotFoundFault, "gone", nil)

	_, err := f.p.Describe(context.Background(), "dwhCluster")
	assert.True(t, errors.Is(err, ErrClusterNotFound))

	_, err = f.p.AuthorizationReference(context.Background(), "dwhCluster")
	assert.True(t, errors.Is(err, ErrClusterNotFound))
}

func TestOpenIngress(t *testing.T) {
	f := newFakes(t)

	require.NoError(t, f.p.OpenIngress(context.Background(), "vpc-123", 5439, "0.0.0.0/0"))
	require.NotNil(t, f.ec2.ingress)
	assert.Equal(t, "sg-default", aws.StringValue(f.ec2.ingress.GroupId))
	assert.Equal(t, "tcp", aws.StringValue(f.ec2.ingress.IpProtocol))
	assert.Equal(t, int64(5439), aws.Int64Value(f.ec2.ingress.FromPort))
	assert.Equal(t, int64(5439), aws.Int64Value(f.ec2.ingress.ToPort))
	assert.Equal(t, "vpc-123", aws.StringValue(f.ec2.filters[0].Values[0]))

	f.ec2.ingressErr = awserr.New(errCodeDuplicatePermission, "rule exists", nil)
	assert.NoError(t, f.p.OpenIngress(context.Background(), "vpc-123", 5439, "0.0.0.0/0"))

	f.ec2.groups = nil
	assert.Error(t, f.p.OpenIngress(context.Background(), "vpc-123", 5439, "0.0.0.0/0"))
}

func TestUp(t *testing.T) {
	f := newFakes(t)

	cluster, err := f.p.Up(context.Background(), testSpec(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "vpc-123", cluster.VpcID)
	assert.Equal(t, []string{roleARN}, cluster.RoleARNs)
	assert.True(t, f.rs.waitedReady)
	require.NotNil(t, f.ec2.ingress)
}

func TestDown(t *testing.T) {
	f := newFakes(t)

	require.NoError(t, f.p.Down(context.Background(), testSpec(), time.Minute))
	require.NotNil(t, f.rs.deleted)
	assert.True(t, aws.BoolValue(f.rs.deleted.SkipFinalClusterSnapshot))
	assert.True(t, f.rs.waitedGone)
	assert.Equal(t, []string{"detach", "delete"}, f.iam.calls)
}

func TestDown_AlreadyGone(t *testing.T) {
	f := newFakes(t)
	f.rs.deleteErr = awserr.New(redshift.ErrCodeClusterNotFoundFault, "gone", nil)
	f.iam.detachErr = awserr.New(iam.ErrCodeNoSuchEntityException, "gone", nil)
	f.iam.deleteErr = awserr.New(iam.ErrCodeNoSuchEntityException, "gone", nil)

	require.NoError(t, f.p.Down(context.Background(), testSpec(), time.Minute))
	assert.False(t, f.rs.waitedGone)
}

func TestDeleteRole_Fails(t *testing.T) {
	f := newFakes(t)
	f.iam.deleteErr = awserr.New("DeleteConflict", "still attached", nil)

	assert.Error(t, f.p.DeleteRole(context.Background(), "dwhRole"))
}
