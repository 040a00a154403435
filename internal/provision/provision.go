// Package provision manages the lifecycle of the Redshift cluster that
// hosts the warehouse: the IAM role it reads S3 with, the cluster itself
// and the ingress rule that lets clients reach it.
package provision

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"
	"github.com/aws/aws-sdk-go/service/redshift"
	"github.com/aws/aws-sdk-go/service/redshift/redshiftiface"
)

// S3ReadOnlyPolicy is attached to the cluster role so COPY can read sources.
const S3ReadOnlyPolicy = "arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"

// DefaultPollInterval is the delay between cluster status checks.
const DefaultPollInterval = 15 * time.Second

// ErrClusterNotFound is returned when a cluster identifier is unknown.
var ErrClusterNotFound = errors.New("cluster not found")

// ClusterNotReadyError is returned when a cluster does not reach the
// wanted status in time.
type ClusterNotReadyError struct {
	ClusterID string
	Status    string
	Err       error
}

func (e *ClusterNotReadyError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("cluster %s not ready: %v", e.ClusterID, e.Err)
	}
	return fmt.Sprintf("cluster %s not ready (status %s): %v", e.ClusterID, e.Status, e.Err)
}

func (e *ClusterNotReadyError) Unwrap() error {
	return e.Err
}

// Spec describes the cluster to create.
type Spec struct {
	Identifier     string
	ClusterType    string
	NodeType       string
	NumberOfNodes  int
	DBName         string
	MasterUser     string
	MasterPassword string
	Port           int
	RoleName       string
	IngressCIDR    string
}

// Cluster is the observed state of a cluster.
type Cluster struct {
	Identifier string
	Status     string
	Host       string
	Port       int
	VpcID      string
	DBName     string
	NodeType   string
	Nodes      int
	RoleARNs   []string
}

// Provisioner talks to the Redshift, IAM and EC2 APIs.
type Provisioner struct {
	redshift     redshiftiface.RedshiftAPI
	iam          iamiface.IAMAPI
	ec2          ec2iface.EC2API
	pollInterval time.Duration
	logger       *slog.Logger
}

// New creates a provisioner for region using the default credential chain.
func New(region string, logger *slog.Logger) (*Provisioner, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:                        aws.String(region),
		CredentialsChainVerboseErrors: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return NewWithClients(redshift.New(sess), iam.New(sess), ec2.New(sess), logger), nil
}

// NewWithClients creates a provisioner around existing API clients.
func NewWithClients(rs redshiftiface.RedshiftAPI, iamc iamiface.IAMAPI, ec2c ec2iface.EC2API, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provisioner{
		redshift:     rs,
		iam:          iamc,
		ec2:          ec2c,
		pollInterval: DefaultPollInterval,
		logger:       logger,
	}
}

// SetPollInterval changes the delay between status checks.
func (p *Provisioner) SetPollInterval(d time.Duration) {
	if d > 0 {
		p.pollInterval = d
	}
}

// isCode reports whether err is an AWS error with one of the given codes.
func isCode(err error, codes ...string) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	for _, c := range codes {
		if aerr.Code() == c {
			return true
		}
	}
	return false
}
