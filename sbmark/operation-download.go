package sbmark

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/lumafield/b2-benchmark/b2api"
)

// OperationDownload fetches a single object into DownloadDir, keeping the
// object name as the relative file path.
type OperationDownload struct{}

func (op *OperationDownload) Execute(ctx context.Context, bctx *BenchmarkContext, key string) (Latency, error) {
	// object names come straight from the listing; refuse anything that would
	// land outside the download directory
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return Latency{}, &b2api.LocalIOError{Op: "create", Path: key, Err: errors.New("object name escapes the download directory")}
	}
	path := filepath.Join(bctx.DownloadDir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return Latency{}, &b2api.LocalIOError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return Latency{}, &b2api.LocalIOError{Op: "create", Path: path, Err: err}
	}

	// the clock runs inside GetObject from request start to the last byte written
	latency, err := bctx.Client.GetObject(ctx, key, f)
	closeErr := f.Close()
	if err != nil {
		// no partial or empty files for failed samples
		_ = os.Remove(path)
		return latency, err
	}
	if closeErr != nil {
		return latency, &b2api.LocalIOError{Op: "close", Path: path, Err: closeErr}
	}
	return latency, nil
}
