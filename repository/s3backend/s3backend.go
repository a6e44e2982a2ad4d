// Package s3backend backs the repository Writer capability with an S3
// bucket — the "s3://" publish target.
package s3backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dionysius/drepo/digest"
	"github.com/dionysius/drepo/repository"
)

// Bucket is a repository.Writer backed by a single S3 bucket and an
// optional key prefix. It does not implement repository.Resolver — S3 is
// a supported publish target in this scheme set, not a supported mirror
// source, since read access to a repository is expected over HTTP(S) or a
// local filesystem snapshot.
type Bucket struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

// New constructs a Bucket writer using an already-configured S3 client.
func New(client *s3.Client, bucket, prefix string) *Bucket {
	return &Bucket{Client: client, Bucket: bucket, Prefix: strings.Trim(prefix, "/")}
}

// NewFromBucketURL splits an "s3://bucket/prefix" path component (without
// the scheme) into (bucket, prefix) and constructs a client for the
// bucket's region via BucketRegion.
func NewFromBucketURL(ctx context.Context, bucketAndPrefix string) (*Bucket, error) {
	bucket, prefix, _ := strings.Cut(bucketAndPrefix, "/")
	if bucket == "" {
		return nil, fmt.Errorf("s3 URL missing bucket name")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	probe := s3.NewFromConfig(cfg)

	region, err := BucketRegion(ctx, probe, bucket)
	if err != nil {
		return nil, err
	}

	regional := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.Region = region
	})

	return New(regional, bucket, prefix), nil
}

// BucketRegion looks up bucket's region via HeadBucket's
// x-amz-bucket-region response header. S3 buckets are region-pinned and
// the region isn't derivable from an "s3://bucket/prefix" URL alone, so
// callers constructing a region-scoped client must resolve it first.
func BucketRegion(ctx context.Context, client *s3.Client, bucket string) (string, error) {
	resp, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: awssdk.String(bucket)})
	if err != nil {
		return "", fmt.Errorf("unknown S3 region for bucket %s: %w", bucket, err)
	}
	if resp.BucketRegion == nil || *resp.BucketRegion == "" {
		return "", fmt.Errorf("unknown S3 region for bucket %s", bucket)
	}
	return *resp.BucketRegion, nil
}

func (b *Bucket) key(path string) string {
	if b.Prefix == "" {
		return path
	}
	return b.Prefix + "/" + path
}

// VerifyPath implements repository.Writer. S3's ETag is MD5-of-content
// only for non-multipart uploads, so full verification is only attempted
// against an MD5 expectation; otherwise this backend reports
// ExistsNoIntegrityCheck rather than risk a false positive.
func (b *Bucket) VerifyPath(ctx context.Context, path string, expected *repository.ExpectedContent) (repository.PathVerification, error) {
	key := b.key(path)

	head, err := b.Client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: awssdk.String(b.Bucket), Key: awssdk.String(key)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return repository.PathVerification{Path: path, State: repository.PathMissing}, nil
		}
		return repository.PathVerification{}, &repository.IoPathError{Path: path, Err: err}
	}

	size := int64(0)
	if head.ContentLength != nil {
		size = *head.ContentLength
	}

	if expected == nil {
		return repository.PathVerification{Path: path, State: repository.PathExistsNoIntegrityCheck, Size: size}, nil
	}

	if size != expected.Size {
		return repository.PathVerification{Path: path, State: repository.PathExistsIntegrityMismatch, Size: size}, nil
	}

	if expected.Digest.Algorithm != digest.MD5 || head.ETag == nil {
		return repository.PathVerification{Path: path, State: repository.PathExistsNoIntegrityCheck, Size: size}, nil
	}

	etag := strings.Trim(*head.ETag, `"`)
	if strings.Contains(etag, "-") {
		// Multipart upload ETag isn't a plain content MD5.
		return repository.PathVerification{Path: path, State: repository.PathExistsNoIntegrityCheck, Size: size}, nil
	}
	if !strings.EqualFold(etag, expected.Digest.Hex()) {
		return repository.PathVerification{Path: path, State: repository.PathExistsIntegrityMismatch, Size: size}, nil
	}

	return repository.PathVerification{Path: path, State: repository.PathExistsIntegrityVerified, Size: size}, nil
}

// WritePath implements repository.Writer. PutObject is atomic from S3's
// perspective: a failed request never makes a partial object visible at
// key.
func (b *Bucket) WritePath(ctx context.Context, path string, r io.Reader) (repository.Write, error) {
	key := b.key(path)

	data, err := io.ReadAll(r)
	if err != nil {
		return repository.Write{}, &repository.IoPathError{Path: path, Err: err}
	}

	_, err = b.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: awssdk.String(b.Bucket),
		Key:    awssdk.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return repository.Write{}, &repository.IoPathError{Path: path, Err: err}
	}

	return repository.Write{Path: path, BytesWritten: int64(len(data))}, nil
}
