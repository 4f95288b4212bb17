package b2api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/tcnksm/go-httpstat"
)

// Download describes a finished object retrieval.
type Download struct {
	Bytes     int64
	FirstByte time.Duration
	Elapsed   time.Duration
	Stat      httpstat.Result
}

// DownloadFileByName streams the object into dst. Elapsed runs from the start
// of the request until the last byte has been written to dst.
func (c *Client) DownloadFileByName(ctx context.Context, name string, dst io.Writer) (Download, error) {
	// https://www.backblaze.com/apidocs/b2-download-file-by-name
	const op = "b2_download_file_by_name"

	var d Download
	ctx = httpstat.WithHTTPStat(ctx, &d.Stat)

	u := c.session.DownloadURL + "/file/" + encodeFileName(c.session.BucketName) + "/" + encodeFileName(name)
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return d, &RequestError{Op: op, Err: err}
	}

	start := time.Now()
	resp, err := c.send(req, op)
	if err != nil {
		return d, err
	}
	defer resp.Body.Close()
	d.FirstByte = time.Since(start)

	w := &trackingWriter{w: dst}
	d.Bytes, err = io.Copy(w, resp.Body)
	d.Elapsed = time.Since(start)
	d.Stat.End(time.Now())
	if w.err != nil {
		return d, &LocalIOError{Op: "write", Path: name, Err: w.err}
	}
	if err != nil {
		return d, &RequestError{Op: op, Err: err}
	}
	return d, nil
}

// trackingWriter remembers write errors so they can be told apart from
// failures reading the response body.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
