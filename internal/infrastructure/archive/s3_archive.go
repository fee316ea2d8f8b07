package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bibbank/bureau-service/internal/domain/port"
)

// ObjectAPI is the subset of *s3.Client the archive uses.
type ObjectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds configuration for NewS3Client.
type S3Config struct {
	Region string
	// Endpoint overrides the AWS endpoint, for MinIO or LocalStack.
	Endpoint string
}

// NewS3Client loads the default AWS credential chain for cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Archive implements port.RawReportArchive. Raw reports are stored under
// <prefix>/<pan>/<sha256>.json, so re-archiving an unchanged report is a
// no-op.
type S3Archive struct {
	client ObjectAPI
	bucket string
	prefix string
}

var _ port.RawReportArchive = (*S3Archive)(nil)

// NewS3Archive creates an archive writing to bucket.
func NewS3Archive(client ObjectAPI, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a report.
func (a *S3Archive) Key(pan string, raw []byte) string {
	sum := sha256.Sum256(raw)
	return path.Join(a.prefix, strings.ToUpper(pan), hex.EncodeToString(sum[:])+".json")
}

// Put stores raw and returns its s3:// location.
func (a *S3Archive) Put(ctx context.Context, pan string, raw []byte) (string, error) {
	if pan == "" {
		return "", fmt.Errorf("archive raw report: pan is required")
	}
	key := a.Key(pan, raw)
	location := "s3://" + a.bucket + "/" + key

	if _, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}); err == nil {
		return location, nil
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(a.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(raw),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: "AES256",
	})
	if err != nil {
		return "", fmt.Errorf("archive raw report: s3 put: %w", err)
	}
	return location, nil
}
