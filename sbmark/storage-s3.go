package sbmark

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tcnksm/go-httpstat"

	"github.com/lumafield/b2-benchmark/b2api"
)

// the S3 API returns at most 1000 keys per page
const s3MaxKeys = 1000

type S3ObjectClient struct {
	delegate *s3.Client
	cfg      *S3ObjectClientConfig
}

type S3ObjectClientConfig struct {
	Region            string
	Endpoint          string
	KeyID             string
	Key               string
	Bucket            string
	Prefix            string
	AllPages          bool
	Insecure          bool
	DisableKeepAlives bool
	Timeout           time.Duration
}

func NewS3Client(ctx context.Context, obConfig *S3ObjectClientConfig) (*S3ObjectClient, error) {
	if obConfig.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint must be provided")
	}

	region := obConfig.Region
	if region == "" {
		region = RegionFromEndpoint(obConfig.Endpoint)
	}

	// B2 serves the S3 API on a per-region endpoint
	customResolver := aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:           obConfig.Endpoint,
			SigningRegion: region,
		}, nil
	})

	// B2 application keys double as S3 access keys
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithEndpointResolver(customResolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(obConfig.KeyID, obConfig.Key, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	tr := &http.Transport{
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: obConfig.Insecure},
		DisableKeepAlives: obConfig.DisableKeepAlives, // true forces TCP and TLS handshakes on every request
	}
	cfg.HTTPClient = &http.Client{
		Timeout:   obConfig.Timeout,
		Transport: tr,
	}

	// custom endpoints don't generally work with the bucket in the host prefix
	usePathStyleOptFunc := func(options *s3.Options) {
		options.UsePathStyle = true
	}

	return &S3ObjectClient{
		delegate: s3.NewFromConfig(cfg, usePathStyleOptFunc),
		cfg:      obConfig,
	}, nil
}

func (c *S3ObjectClient) ListObjects(ctx context.Context) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.cfg.Bucket),
		MaxKeys: s3MaxKeys,
	}
	if c.cfg.Prefix != "" {
		input.Prefix = aws.String(c.cfg.Prefix)
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.delegate, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !c.cfg.AllPages {
			break
		}
	}
	return keys, nil
}

func (c *S3ObjectClient) GetObject(ctx context.Context, key string, dst io.Writer) (Latency, error) {
	var result httpstat.Result
	ctx = httpstat.WithHTTPStat(ctx, &result)

	start := time.Now()
	resp, err := c.delegate.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return latency(result), fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer resp.Body.Close()

	lat := latency(result)
	lat.FirstByte = time.Since(start)
	err = timedCopy(start, &lat, dst, resp.Body)
	return lat, err
}

func (c *S3ObjectClient) PutObject(ctx context.Context, key string, localPath string) (Latency, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return Latency{}, &b2api.LocalIOError{Op: "open", Path: localPath, Err: err}
	}
	defer f.Close()

	var result httpstat.Result
	ctx = httpstat.WithHTTPStat(ctx, &result)

	start := time.Now()
	_, err = c.delegate.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(prefixed(c.cfg.Prefix, key)),
		Body:   f,
	})

	lat := latency(result)
	lat.LastByte = time.Since(start)
	if err != nil {
		return lat, fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return lat, nil
}

// RegionFromEndpoint extracts the region of a B2 S3 endpoint such as
// https://s3.us-west-004.backblazeb2.com. It falls back to us-east-1.
func RegionFromEndpoint(endpoint string) string {
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	parts := strings.Split(host, ".")
	if len(parts) >= 3 && parts[0] == "s3" {
		return parts[1]
	}
	return "us-east-1"
}
