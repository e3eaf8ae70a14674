package lake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/lakecraft/silversmith/pkg/types"
)

// Client is a minio-backed Store bound to one bucket.
type Client struct {
	mc     *minio.Client
	bucket string
	region string
}

var _ Store = (*Client)(nil)

// NewClient connects to the object store described by cfg.
func NewClient(cfg types.LakeConfig) (*Client, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating lake client: %w", err)
	}

	return &Client{mc: mc, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// Bucket returns the bucket the client is bound to.
func (c *Client) Bucket() string { return c.bucket }

func (c *Client) List(ctx context.Context, prefix string) ([]types.FileRef, error) {
	var files []types.FileRef
	objectCh := c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for obj := range objectCh {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s: %w", prefix, obj.Err)
		}
		files = append(files, types.FileRef{
			Key:  obj.Key,
			URI:  c.uri(obj.Key),
			Size: obj.Size,
		})
	}
	return files, nil
}

func (c *Client) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", key, err)
	}
	// GetObject is lazy; Stat forces the request so missing objects fail here
	// rather than on first read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("fetching %s: %w", key, err)
	}
	return obj, nil
}

func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", c.bucket, err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.mc.ListBuckets(ctx); err != nil {
		return fmt.Errorf("lake unreachable: %w", err)
	}
	return nil
}

func (c *Client) uri(key string) string {
	return fmt.Sprintf("s3://%s/%s", c.bucket, key)
}
