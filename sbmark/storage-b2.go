package sbmark

import (
	"context"
	"io"
	"time"

	"github.com/lumafield/b2-benchmark/b2api"
)

// B2ObjectClient runs the benchmark through the B2 native API.
type B2ObjectClient struct {
	delegate *b2api.Client
	allPages bool
}

type B2ObjectClientConfig struct {
	// follow nextFileName instead of stopping after the first page
	AllPages bool
}

func NewB2Client(client *b2api.Client, obConfig *B2ObjectClientConfig) *B2ObjectClient {
	return &B2ObjectClient{
		delegate: client,
		allPages: obConfig.AllPages,
	}
}

func (c *B2ObjectClient) ListObjects(ctx context.Context) ([]string, error) {
	if c.allPages {
		return c.delegate.ListAllFileNames(ctx, "")
	}
	page, err := c.delegate.ListFileNames(ctx, b2api.ListOptions{MaxFileCount: b2api.MaxFileCount})
	if err != nil {
		return nil, err
	}
	return page.Names(), nil
}

func (c *B2ObjectClient) GetObject(ctx context.Context, key string, dst io.Writer) (Latency, error) {
	d, err := c.delegate.DownloadFileByName(ctx, key, dst)
	lat := latency(d.Stat)
	lat.Bytes = d.Bytes
	lat.FirstByte = d.FirstByte
	lat.LastByte = d.Elapsed
	return lat, err
}

func (c *B2ObjectClient) PutObject(ctx context.Context, key string, localPath string) (Latency, error) {
	start := time.Now()

	// every upload needs its own ticket
	ticket, err := c.delegate.GetUploadURL(ctx)
	if err != nil {
		return Latency{}, err
	}
	info, err := c.delegate.UploadFile(ctx, ticket, localPath, key)
	lat := Latency{LastByte: time.Since(start)}
	if info != nil {
		lat.Bytes = info.ContentLength
	}
	return lat, err
}
