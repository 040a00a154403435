package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// maxListKeys bounds a single ListObjectsV2 page.
const maxListKeys = 1000

// Store reads from S3 and the local filesystem.
type Store struct {
	s3     s3iface.S3API
	logger *slog.Logger
}

// New creates a store with an S3 client for region.
func New(region string, logger *slog.Logger) *Store {
	sess := session.Must(session.NewSession(&aws.Config{
		Region:                        aws.String(region),
		CredentialsChainVerboseErrors: aws.Bool(true),
	}))
	return NewWithClient(s3.New(sess), logger)
}

// NewWithClient creates a store around an existing S3 client.
func NewWithClient(client s3iface.S3API, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{s3: client, logger: logger}
}

// ReadFile returns the contents of a single object or file.
func (s *Store) ReadFile(ctx context.Context, location string) ([]byte, error) {
	loc, err := Parse(location)
	if err != nil {
		return nil, err
	}

	if !loc.Remote() {
		data, err := os.ReadFile(loc.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", loc, err)
		}
		return data, nil
	}

	s.logger.Debug("fetching object", slog.String("location", loc.String()))
	out, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", loc, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", loc, err)
	}
	return data, nil
}

// Exists reports whether a single object or file exists.
func (s *Store) Exists(ctx context.Context, location string) (bool, error) {
	loc, err := Parse(location)
	if err != nil {
		return false, err
	}

	if !loc.Remote() {
		info, err := os.Stat(loc.Path)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to stat %s: %w", loc, err)
		}
		return !info.IsDir(), nil
	}

	_, err = s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head %s: %w", loc, err)
	}
	return true, nil
}

// Count returns the number of objects under a key prefix, or the number
// of .json files beneath a local directory.
func (s *Store) Count(ctx context.Context, location string) (int, error) {
	loc, err := Parse(location)
	if err != nil {
		return 0, err
	}
	if !loc.Remote() {
		return countLocal(loc.Path)
	}

	count := 0
	err = s.s3.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(loc.Bucket),
		Prefix:  aws.String(loc.Key),
		MaxKeys: aws.Int64(maxListKeys),
	}, func(out *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range out.Contents {
			// skip folder placeholders
			if !strings.HasSuffix(aws.StringValue(obj.Key), "/") {
				count++
			}
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", loc, err)
	}

	s.logger.Debug("listed objects", slog.String("location", loc.String()), slog.Int("count", count))
	return count, nil
}

func countLocal(root string) (int, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return 1, nil
	}

	count := 0
	err = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return count, nil
}
