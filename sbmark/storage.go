package sbmark

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/tcnksm/go-httpstat"
)

// Abstraction of the object storage the benchmark runs against (B2 native API, S3 API, local files, ...)
type StorageInterface interface {
	// ListObjects returns the object keys under the configured prefix.
	ListObjects(ctx context.Context) ([]string, error)
	// GetObject streams the object into dst.
	GetObject(ctx context.Context, key string, dst io.Writer) (Latency, error)
	// PutObject uploads the local file as key below the configured prefix.
	PutObject(ctx context.Context, key string, localPath string) (Latency, error)
}

// Represents the duration from making different parts of an operation including the time to first byte (TTFB) and the time to last byte (TTLB).
type Latency struct {
	Bytes            int64
	FirstByte        time.Duration
	LastByte         time.Duration
	DNSLookup        time.Duration
	TCPConnection    time.Duration
	TLSHandshake     time.Duration
	ServerProcessing time.Duration
}

func (lat *Latency) Unassigned() time.Duration {
	return lat.LastByte - lat.DNSLookup - lat.TCPConnection - lat.TLSHandshake - lat.ServerProcessing
}

// copies the connection timings of an httpstat trace into a Latency
func latency(result httpstat.Result) Latency {
	return Latency{
		DNSLookup:        result.DNSLookup,
		TCPConnection:    result.TCPConnection,
		TLSHandshake:     result.TLSHandshake,
		ServerProcessing: result.ServerProcessing,
	}
}

// timedCopy copies src to dst and fills in Bytes and LastByte relative to
// start. FirstByte is set on the first write unless it is already known.
func timedCopy(start time.Time, lat *Latency, dst io.Writer, src io.Reader) error {
	w := &firstByteWriter{w: dst, start: start, lat: lat}
	n, err := io.Copy(w, src)
	lat.Bytes = n
	lat.LastByte = time.Since(start)
	if lat.FirstByte == 0 {
		lat.FirstByte = lat.LastByte
	}
	return err
}

type firstByteWriter struct {
	w     io.Writer
	start time.Time
	lat   *Latency
}

func (f *firstByteWriter) Write(p []byte) (int, error) {
	if f.lat.FirstByte == 0 && len(p) > 0 {
		f.lat.FirstByte = time.Since(f.start)
	}
	return f.w.Write(p)
}

// joins the configured prefix and a key with a single slash
func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimRight(prefix, "/") + "/" + key
}
