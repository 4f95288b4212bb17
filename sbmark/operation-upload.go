package sbmark

import (
	"context"
	"fmt"
	"os"

	uuid "github.com/satori/go.uuid"

	"github.com/lumafield/b2-benchmark/b2api"
)

// OperationUpload uploads a local file under a fresh random name.
type OperationUpload struct {
	keys []string
}

func (op *OperationUpload) Execute(ctx context.Context, bctx *BenchmarkContext, localPath string) (string, Latency, error) {
	key := uuid.NewV4().String()
	bctx.Logger.Info().Str("key", key).Str("file", localPath).Msg("uploading")

	latency, err := bctx.Client.PutObject(ctx, key, localPath)
	if err != nil {
		bctx.Logger.Error().Err(err).Str("key", key).Msg("upload failed")
		return key, latency, err
	}
	op.keys = append(op.keys, key)
	return key, latency, nil
}

// Keys returns the names uploaded so far, without the storage prefix.
func (op *OperationUpload) Keys() []string {
	return op.keys
}

// UploadObjects uploads localPath n times, one request after the other, and
// stops at the first failure.
func UploadObjects(ctx context.Context, bctx *BenchmarkContext, n int, localPath string) ([]string, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, &b2api.LocalIOError{Op: "stat", Path: localPath, Err: err}
	}

	fmt.Fprintf(bctx.out(), "Uploading %d x %s (%s)\n", n, localPath, ByteFormat(float64(info.Size())))
	bar := bctx.newTicker(n)

	op := &OperationUpload{}
	for i := 0; i < n; i++ {
		if _, _, err := op.Execute(ctx, bctx, localPath); err != nil {
			return op.Keys(), err
		}
		_ = bar.Add(1)
	}
	fmt.Fprint(bctx.out(), "\n\n")
	return op.Keys(), nil
}
