// Package objectstore reads source data locations, which are either S3
// URIs or local paths.
package objectstore

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Location is a parsed source location.
type Location struct {
	// Bucket and Key are set for s3:// locations.
	Bucket string
	Key    string

	// Path is set for local locations.
	Path string
}

// Parse parses an s3://bucket/key URI or a local path (optionally file://).
func Parse(raw string) (Location, error) {
	if raw == "" {
		return Location{}, fmt.Errorf("empty location")
	}

	switch {
	case strings.HasPrefix(raw, "s3://"):
		u, err := url.Parse(raw)
		if err != nil {
			return Location{}, fmt.Errorf("invalid s3 location %q: %w", raw, err)
		}
		if u.Host == "" {
			return Location{}, fmt.Errorf("invalid s3 location %q: missing bucket", raw)
		}
		return Location{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
	case strings.HasPrefix(raw, "file://"):
		return Location{Path: filepath.FromSlash(strings.TrimPrefix(raw, "file://"))}, nil
	case strings.Contains(raw, "://"):
		return Location{}, fmt.Errorf("unsupported location scheme in %q", raw)
	default:
		return Location{Path: raw}, nil
	}
}

// Remote reports whether the location lives in S3.
func (l Location) Remote() bool {
	return l.Bucket != ""
}

func (l Location) String() string {
	if l.Remote() {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Path
}
