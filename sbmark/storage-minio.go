package sbmark

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tcnksm/go-httpstat"

	"github.com/lumafield/b2-benchmark/b2api"
)

// MinioObjectClient runs the benchmark against the S3 compatible endpoint
// using minio-go instead of the AWS SDK.
type MinioObjectClient struct {
	delegate *minio.Client
	cfg      *S3ObjectClientConfig
}

func NewMinioClient(obConfig *S3ObjectClientConfig) (*MinioObjectClient, error) {
	if obConfig.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint must be provided")
	}
	u, err := url.Parse(obConfig.Endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid s3 endpoint %q", obConfig.Endpoint)
	}

	region := obConfig.Region
	if region == "" {
		region = RegionFromEndpoint(obConfig.Endpoint)
	}

	tr := &http.Transport{
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: obConfig.Insecure},
		DisableKeepAlives: obConfig.DisableKeepAlives,
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:        credentials.NewStaticV4(obConfig.KeyID, obConfig.Key, ""),
		Secure:       u.Scheme != "http",
		Region:       region,
		Transport:    tr,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioObjectClient{
		delegate: client,
		cfg:      obConfig,
	}, nil
}

func (c *MinioObjectClient) ListObjects(ctx context.Context) ([]string, error) {
	// stop the listing goroutine once we have what we need
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []string
	objects := c.delegate.ListObjects(ctx, c.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    c.cfg.Prefix,
		Recursive: true,
		MaxKeys:   s3MaxKeys,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		keys = append(keys, obj.Key)
		if !c.cfg.AllPages && len(keys) >= s3MaxKeys {
			break
		}
	}
	return keys, nil
}

func (c *MinioObjectClient) GetObject(ctx context.Context, key string, dst io.Writer) (Latency, error) {
	var result httpstat.Result
	ctx = httpstat.WithHTTPStat(ctx, &result)

	start := time.Now()
	obj, err := c.delegate.GetObject(ctx, c.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return latency(result), fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	// the request is only sent on the first read, so TTFB is taken there
	var lat Latency
	err = timedCopy(start, &lat, dst, obj)
	stat := latency(result)
	stat.Bytes, stat.FirstByte, stat.LastByte = lat.Bytes, lat.FirstByte, lat.LastByte
	if err != nil {
		return stat, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return stat, nil
}

func (c *MinioObjectClient) PutObject(ctx context.Context, key string, localPath string) (Latency, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return Latency{}, &b2api.LocalIOError{Op: "open", Path: localPath, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Latency{}, &b2api.LocalIOError{Op: "stat", Path: localPath, Err: err}
	}

	var result httpstat.Result
	ctx = httpstat.WithHTTPStat(ctx, &result)

	start := time.Now()
	up, err := c.delegate.PutObject(ctx, c.cfg.Bucket, prefixed(c.cfg.Prefix, key), f, info.Size(), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})

	lat := latency(result)
	lat.LastByte = time.Since(start)
	lat.Bytes = up.Size
	if err != nil {
		return lat, fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return lat, nil
}
