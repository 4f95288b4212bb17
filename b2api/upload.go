package b2api

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"os"
	"strings"
)

// UploadFile reads localPath into memory and uploads it as remoteName below
// the session prefix. The server verifies the SHA-1 sent along; there is no
// retry on mismatch.
func (c *Client) UploadFile(ctx context.Context, ticket *UploadTicket, localPath, remoteName string) (*FileInfo, error) {
	// https://www.backblaze.com/apidocs/b2-upload-file
	const op = "b2_upload_file"

	buf, err := os.ReadFile(localPath)
	if err != nil {
		return nil, &LocalIOError{Op: "read", Path: localPath, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ticket.UploadURL, bytes.NewReader(buf))
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	req.ContentLength = int64(len(buf))
	req.Header.Set("Authorization", ticket.AuthorizationToken.Reveal())
	req.Header.Set("Content-Type", "b2/x-auto")
	req.Header.Set("X-Bz-File-Name", encodeFileName(c.RemoteName(remoteName)))
	req.Header.Set("X-Bz-Content-Sha1", ContentSha1(buf))

	var info FileInfo
	if err := c.do(req, op, &info); err != nil {
		return nil, err
	}
	c.logger.Debug().Str("file", info.FileName).Int64("bytes", info.ContentLength).Msg("uploaded file")
	return &info, nil
}

// RemoteName joins name to the session prefix.
func (c *Client) RemoteName(name string) string {
	if c.session.Prefix == "" {
		return name
	}
	return strings.TrimRight(c.session.Prefix, "/") + "/" + name
}

// ContentSha1 is the hex encoded SHA-1 B2 expects in X-Bz-Content-Sha1.
func ContentSha1(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// encodeFileName percent-encodes everything but unreserved characters and
// the slash. B2 decodes a bare '+' as a space, so it has to travel as %2B.
func encodeFileName(name string) string {
	const upperhex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '.' || c == '_' || c == '~'
}
