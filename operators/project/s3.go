package project

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"colexpr-go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go"
	"github.com/pkg/errors"
)

var (
	ErrInvalidObjectURL = func(raw string) error {
		return fmt.Errorf("%q is not an s3://bucket/key url", raw)
	}
	ErrUnknownProvider = func(name string) error {
		return fmt.Errorf("unknown object store provider %q, expected aws or minio", name)
	}
)

// ObjectStore opens objects for streaming reads.
type ObjectStore interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// NewObjectStore builds the object store named by the s3 section of cfg.
func NewObjectStore(cfg *config.Config) (ObjectStore, error) {
	switch strings.ToLower(cfg.S3.Provider) {
	case "", "aws":
		return NewAWSStore(cfg), nil
	case "minio":
		return NewMinioStore(cfg)
	default:
		return nil, ErrUnknownProvider(cfg.S3.Provider)
	}
}

type awsStore struct {
	client *s3.Client
}

// NewAWSStore returns a store backed by the AWS SDK. When an endpoint is
// configured requests go there with path style addressing, which is what S3
// compatible servers expect.
func NewAWSStore(cfg *config.Config) ObjectStore {
	opts := s3.Options{
		Region: cfg.S3.Region,
	}
	if cfg.S3.AccessKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.S3.AccessKey,
			SecretAccessKey: cfg.S3.SecretKey,
			Source:          "colexpr config",
		}
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		})
	}
	if cfg.S3.Endpoint != "" {
		endpoint := cfg.S3.Endpoint
		if !strings.Contains(endpoint, "://") {
			scheme := "https://"
			if !cfg.S3.UseSSL {
				scheme = "http://"
			}
			endpoint = scheme + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return &awsStore{client: s3.New(opts)}
}

func (a *awsStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get s3://%s/%s", bucket, key)
	}
	return out.Body, nil
}

type minioStore struct {
	client *minio.Client
}

// NewMinioStore returns a store backed by a minio client on the configured
// endpoint.
func NewMinioStore(cfg *config.Config) (ObjectStore, error) {
	client, err := minio.NewWithRegion(cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.UseSSL, cfg.S3.Region)
	if err != nil {
		return nil, errors.Wrap(err, "minio client")
	}
	return &minioStore{client: client}, nil
}

func (m *minioStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObjectWithContext(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "get s3://%s/%s", bucket, key)
	}
	return obj, nil
}

// ParseObjectURL splits s3://bucket/key. A url without a bucket uses
// defaultBucket.
func ParseObjectURL(raw, defaultBucket string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" {
		return "", "", ErrInvalidObjectURL(raw)
	}
	bucket = u.Host
	if bucket == "" {
		bucket = defaultBucket
	}
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", ErrInvalidObjectURL(raw)
	}
	return bucket, key, nil
}

// IsObjectURL reports whether path names an object rather than a local file.
func IsObjectURL(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// NewObjectCSVSource streams the CSV object at rawURL from store. Closing the
// source closes the object stream.
func NewObjectCSVSource(ctx context.Context, store ObjectStore, rawURL, defaultBucket string) (*CSVSource, error) {
	bucket, key, err := ParseObjectURL(rawURL, defaultBucket)
	if err != nil {
		return nil, err
	}
	body, err := store.Open(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	src, err := NewProjectCSVLeaf(body)
	if err != nil {
		body.Close()
		return nil, err
	}
	return src, nil
}
