package config

import (
	"fmt"
	"strings"
)

// Target is a parsed publication destination.
type Target struct {
	Scheme   string // local, s3 or minio
	Endpoint string // minio only
	Bucket   string // s3 and minio
	Prefix   string // key prefix, or the directory for local
}

// ParseTarget parses local://dir, s3://bucket[/prefix] and
// minio://endpoint/bucket[/prefix].
func ParseTarget(s string) (Target, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok || rest == "" {
		return Target{}, fmt.Errorf("%w: invalid publish target %q", ErrInvalidConfig, s)
	}

	switch scheme {
	case "local":
		return Target{Scheme: scheme, Prefix: rest}, nil
	case "s3":
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Target{}, fmt.Errorf("%w: s3 target needs a bucket: %q", ErrInvalidConfig, s)
		}
		return Target{Scheme: scheme, Bucket: bucket, Prefix: prefix}, nil
	case "minio":
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return Target{}, fmt.Errorf("%w: minio target needs endpoint and bucket: %q", ErrInvalidConfig, s)
		}
		t := Target{Scheme: scheme, Endpoint: parts[0], Bucket: parts[1]}
		if len(parts) == 3 {
			t.Prefix = parts[2]
		}
		return t, nil
	default:
		return Target{}, fmt.Errorf("%w: unsupported publish scheme %q", ErrInvalidConfig, scheme)
	}
}
