package sbmark

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lumafield/b2-benchmark/b2api"
)

// the same page cap as b2_list_file_names
const fsMaxKeys = 10000

// errStopWalk ends a directory walk once a full page has been collected.
var errStopWalk = errors.New("stop walk")

// FsObjectClient treats a local directory as a bucket. Useful for dry runs of
// the benchmark without network access.
type FsObjectClient struct {
	cfg *FsObjectClientConfig
}

type FsObjectClientConfig struct {
	RootPath string
	Bucket   string
	Prefix   string
	AllPages bool
}

func NewFsClient(obConfig *FsObjectClientConfig) *FsObjectClient {
	return &FsObjectClient{
		cfg: obConfig,
	}
}

func (c *FsObjectClient) bucketPath() string {
	return filepath.Join(c.cfg.RootPath, c.cfg.Bucket)
}

func (c *FsObjectClient) objectPath(key string) string {
	return filepath.Join(c.bucketPath(), filepath.FromSlash(key))
}

func (c *FsObjectClient) ListObjects(ctx context.Context) ([]string, error) {
	root := c.bucketPath()
	var keys []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if c.cfg.Prefix != "" && !strings.HasPrefix(key, c.cfg.Prefix) {
			return nil
		}
		keys = append(keys, key)
		if !c.cfg.AllPages && len(keys) >= fsMaxKeys {
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *FsObjectClient) GetObject(ctx context.Context, key string, dst io.Writer) (Latency, error) {
	start := time.Now()
	f, err := os.Open(c.objectPath(key))
	if err != nil {
		return Latency{}, err
	}
	defer f.Close()

	var lat Latency
	err = timedCopy(start, &lat, dst, f)
	return lat, err
}

func (c *FsObjectClient) PutObject(ctx context.Context, key string, localPath string) (Latency, error) {
	start := time.Now()
	src, err := os.Open(localPath)
	if err != nil {
		return Latency{}, &b2api.LocalIOError{Op: "open", Path: localPath, Err: err}
	}
	defer src.Close()

	path := c.objectPath(prefixed(c.cfg.Prefix, key))
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return Latency{}, &b2api.LocalIOError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	writer, err := os.Create(path)
	if err != nil {
		return Latency{}, &b2api.LocalIOError{Op: "create", Path: path, Err: err}
	}

	var lat Latency
	err = timedCopy(start, &lat, writer, src)
	if cerr := writer.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return lat, &b2api.LocalIOError{Op: "write", Path: path, Err: err}
	}
	return lat, nil
}
