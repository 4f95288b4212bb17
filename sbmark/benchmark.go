package sbmark

import (
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v2"
)

// BenchmarkContext includes everything that's needed to run the benchmark
type BenchmarkContext struct {
	Description string
	Backend     string // b2, s3, minio, fs
	Endpoint    string
	Path        string // bucket and prefix
	Hostname    string

	Client      StorageInterface
	Samples     int
	Threads     int
	DownloadDir string

	// picks the sampled object keys; seeded from the clock when nil
	Rand *rand.Rand
	// disables progress bars
	Quiet bool

	Logger zerolog.Logger
	// where the results are printed, stdout when nil
	Out io.Writer

	Report Report
}

// Ticker is the part of a progress bar the benchmark uses.
type Ticker interface {
	Add(int) error
}

// NilTicker swallows progress updates.
type NilTicker struct{}

func (t *NilTicker) Add(int) error { return nil }

func (ctx *BenchmarkContext) newTicker(max int) Ticker {
	if ctx.Quiet {
		return &NilTicker{}
	}
	return progressbar.NewOptions(max, progressbar.OptionSetRenderBlankState(true))
}

func (ctx *BenchmarkContext) out() io.Writer {
	if ctx.Out == nil {
		return os.Stdout
	}
	return ctx.Out
}

func (ctx *BenchmarkContext) random() *rand.Rand {
	if ctx.Rand == nil {
		ctx.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	return ctx.Rand
}

// formats bytes to KB or MB
func ByteFormat(bytes float64) string {
	if bytes >= 1024*1024 {
		return fmt.Sprintf("%.f MB", bytes/1024/1024)
	}
	return fmt.Sprintf("%.f KB", bytes/1024)
}
