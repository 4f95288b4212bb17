package b2api

import (
	"context"
	"net/http"
	"net/url"
)

// ListOptions controls a single b2_list_file_names call. An empty Prefix means
// the session prefix; MaxFileCount is clamped to [1, MaxFileCount].
type ListOptions struct {
	Prefix        string
	StartFileName string
	MaxFileCount  int
}

// GetUploadURL asks for a fresh upload ticket. Tickets must not be reused
// across uploads.
func (c *Client) GetUploadURL(ctx context.Context) (*UploadTicket, error) {
	// https://www.backblaze.com/apidocs/b2-get-upload-url
	const op = "b2_get_upload_url"

	u := c.session.VersionedURL + "/" + op + "?" + url.Values{"bucketId": {c.session.BucketID}}.Encode()
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}

	var ticket UploadTicket
	if err := c.do(req, op, &ticket); err != nil {
		return nil, err
	}
	if ticket.UploadURL == "" || ticket.AuthorizationToken == "" {
		return nil, &RequestError{Op: op, Message: "incomplete upload ticket"}
	}
	return &ticket, nil
}

// ListFileNames returns one page of file names. It does not follow
// NextFileName; see ListAllFileNames.
func (c *Client) ListFileNames(ctx context.Context, opts ListOptions) (*ListFileNamesResponse, error) {
	// https://www.backblaze.com/apidocs/b2-list-file-names
	prefix := opts.Prefix
	if prefix == "" {
		prefix = c.session.Prefix
	}

	body := listFileNamesRequest{
		BucketID:      c.session.BucketID,
		Prefix:        prefix,
		StartFileName: opts.StartFileName,
		MaxFileCount:  clampFileCount(opts.MaxFileCount),
	}

	var r ListFileNamesResponse
	if err := c.postJSON(ctx, "b2_list_file_names", body, &r); err != nil {
		return nil, err
	}
	c.logger.Debug().Int("files", len(r.Files)).Bool("more", r.NextFileName != nil).Msg("listed file names")
	return &r, nil
}

// ListAllFileNames pages through the whole listing under prefix.
func (c *Client) ListAllFileNames(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	opts := ListOptions{Prefix: prefix, MaxFileCount: MaxFileCount}
	for {
		page, err := c.ListFileNames(ctx, opts)
		if err != nil {
			return nil, err
		}
		names = append(names, page.Names()...)
		if page.NextFileName == nil || *page.NextFileName == "" {
			return names, nil
		}
		opts.StartFileName = *page.NextFileName
	}
}

func clampFileCount(n int) int {
	if n <= 0 || n > MaxFileCount {
		return MaxFileCount
	}
	return n
}
