package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/s3utils"
	"github.com/rs/zerolog/log"
)

const (
	amazonEndpoint = "s3.amazonaws.com"
	defaultRegion  = "us-east-1"
)

var regionPattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-[0-9]+$`)

func init() {
	// Every call is a single attempt; callers decide what to do with failures.
	minio.MaxRetry = 1
}

// S3Config encapsulates the connection info for AWS S3 or an S3-compatible service.
// Exactly one of Region and Endpoint must be set.
type S3Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

// Validate checks the structure of the config without contacting the backend.
func (cfg S3Config) Validate() error {
	_, _, err := cfg.target()
	return err
}

// target resolves the host, TLS mode and signing region the client talks to.
func (cfg S3Config) target() (host string, secure bool, err error) {
	region := strings.TrimSpace(cfg.Region)
	endpoint := strings.TrimSpace(cfg.Endpoint)

	if err := s3utils.CheckValidBucketName(cfg.Bucket); err != nil {
		return "", false, &ConfigError{Reason: fmt.Sprintf("bucket %q", cfg.Bucket), Err: err}
	}

	switch {
	case region != "" && endpoint != "":
		return "", false, &ConfigError{Reason: "region and endpoint are mutually exclusive"}
	case region == "" && endpoint == "":
		return "", false, &ConfigError{Reason: "either region or endpoint must be provided"}
	case region != "":
		if !regionPattern.MatchString(region) {
			return "", false, &ConfigError{Reason: fmt.Sprintf("invalid s3 region %q", region)}
		}
		return amazonEndpoint, true, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, &ConfigError{Reason: fmt.Sprintf("invalid endpoint %q", endpoint), Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false, &ConfigError{Reason: fmt.Sprintf("endpoint %q must use http or https", endpoint)}
	}
	if u.Host == "" {
		return "", false, &ConfigError{Reason: fmt.Sprintf("endpoint %q has no host", endpoint)}
	}
	if u.Path != "" && u.Path != "/" {
		return "", false, &ConfigError{Reason: fmt.Sprintf("endpoint %q must not contain a path", endpoint)}
	}
	return u.Host, u.Scheme == "https", nil
}

// S3Client implements ObjectStorage on top of minio-go.
type S3Client struct {
	client *minio.Client
	bucket string
}

// NewS3Client builds a new S3Client. No request is made to the backend.
func NewS3Client(cfg S3Config) (*S3Client, error) {
	host, secure, err := cfg.target()
	if err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	}
	if cfg.Endpoint != "" {
		// S3-compatible services rarely support virtual-host buckets.
		opts.BucketLookup = minio.BucketLookupPath
		opts.Region = defaultRegion
	}

	client, err := minio.New(host, opts)
	if err != nil {
		return nil, &ConfigError{Reason: "failed to create s3 client", Err: err}
	}

	log.Debug().
		Str("bucket", cfg.Bucket).
		Str("host", host).
		Str("region", opts.Region).
		Msg("accessing s3 bucket")

	return &S3Client{client: client, bucket: cfg.Bucket}, nil
}

// PutObject streams size bytes from r to key. Empty payloads are not uploaded.
func (c *S3Client) PutObject(ctx context.Context, key string, r io.Reader, size int64) (int64, error) {
	if size == 0 {
		return 0, nil
	}
	info, err := c.client.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:          "application/octet-stream",
		DisableContentSha256: true,
	})
	if err != nil {
		return 0, c.wrapErr("put", key, err)
	}
	log.Info().Str("bucket", c.bucket).Str("key", key).Int64("size", info.Size).Msg("object uploaded")
	return info.Size, nil
}

// PutString uploads text as the content of key. Meant for small payloads only.
func (c *S3Client) PutString(ctx context.Context, key, text string) (int64, error) {
	if len(text) == 0 {
		return 0, nil
	}
	return c.PutObject(ctx, key, strings.NewReader(text), int64(len(text)))
}

// DownloadObject streams key into destPath and returns the number of bytes written.
// Nothing is left at destPath when the download fails.
func (c *S3Client) DownloadObject(ctx context.Context, key, destPath string) (int64, error) {
	obj, err := c.openObject(ctx, key)
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("failed creating directory for %s: %w", destPath, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed creating %s: %w", destPath, err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, obj)
	if err != nil {
		tmp.Close()
		return 0, c.wrapErr("get", key, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed writing %s: %w", destPath, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed writing %s: %w", destPath, err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return 0, fmt.Errorf("failed writing %s: %w", destPath, err)
	}

	log.Info().Str("bucket", c.bucket).Str("key", key).Str("path", destPath).Int64("size", written).Msg("object downloaded")
	return written, nil
}

// GetString returns the content of key as text. Meant for small payloads only.
func (c *S3Client) GetString(ctx context.Context, key string) (string, error) {
	obj, err := c.openObject(ctx, key)
	if err != nil {
		return "", err
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return "", c.wrapErr("get", key, err)
	}
	if !utf8.Valid(buf.Bytes()) {
		return "", &DecodeError{Key: key}
	}
	return buf.String(), nil
}

// ListObjects lists every object under prefix in the order the backend returns them.
func (c *S3Client) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	results := make([]ObjectInfo, 0)
	for object := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, c.wrapErr("list", prefix, object.Err)
		}
		results = append(results, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	log.Debug().Str("bucket", c.bucket).Str("prefix", prefix).Int("count", len(results)).Msg("objects listed")
	return results, nil
}

// openObject starts a download and fails early when the key is missing.
func (c *S3Client) openObject(ctx context.Context, key string) (*minio.Object, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, c.wrapErr("get", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, c.wrapErr("get", key, err)
	}
	return obj, nil
}

func (c *S3Client) wrapErr(op, key string, err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
		return &NotFoundError{Bucket: c.bucket, Key: key}
	}
	return &TransportError{Op: op, Bucket: c.bucket, Key: key, Err: err}
}

var _ ObjectStorage = (*S3Client)(nil)
