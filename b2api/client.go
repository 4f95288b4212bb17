// Package b2api is a thin client for the Backblaze B2 native API. It covers
// what the benchmark needs: authorize, get an upload URL, upload, list file
// names and download by name.
package b2api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://api.backblazeb2.com"
	APIVersion     = "b2api/v3"

	// MaxFileCount is the largest page b2_list_file_names will return.
	MaxFileCount = 10000
)

// Credentials identify the application key and the bucket to work on.
type Credentials struct {
	KeyID  string
	Key    string
	Bucket string
}

// Session is what b2_authorize_account hands back. It does not change for the
// lifetime of a Client.
type Session struct {
	AccountID     string
	Token         Token
	APIURL        string // versionless
	VersionedURL  string
	DownloadURL   string
	S3APIURL      string
	BucketID      string
	BucketName    string
	Prefix        string
	KeyExpiration *time.Time
}

// Client issues authenticated requests against one bucket.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	prefix     string
	logger     zerolog.Logger
	session    Session
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBaseURL overrides the authorization endpoint, mostly for tests.
func WithBaseURL(u string) Option {
	return func(cl *Client) { cl.baseURL = strings.TrimRight(u, "/") }
}

func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithPrefix replaces the name prefix the key was issued with. Empty keeps it.
func WithPrefix(prefix string) Option {
	return func(cl *Client) { cl.prefix = prefix }
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) { cl.userAgent = ua }
}

// Authorize calls b2_authorize_account and returns a ready client. On any
// failure it returns an *AuthError and no client.
func Authorize(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: 180 * time.Second},
		baseURL:    DefaultBaseURL,
		userAgent:  "b2-benchmark",
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if creds.KeyID == "" || creds.Key == "" {
		return nil, &AuthError{Err: errors.New("missing application key id or key")}
	}

	// https://www.backblaze.com/apidocs/b2-authorize-account
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+APIVersion+"/b2_authorize_account", nil)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	req.SetBasicAuth(creds.KeyID, creds.Key)

	var r authorizeAccountResponse
	if err := c.do(req, "b2_authorize_account", &r); err != nil {
		return nil, &AuthError{Err: err}
	}
	if r.AuthorizationToken == "" {
		return nil, &AuthError{Err: errors.New("response carries no authorization token")}
	}

	storage := r.APIInfo.StorageAPI
	if storage.APIURL == "" {
		return nil, &AuthError{Err: errors.New("response carries no storage api url")}
	}

	c.session = Session{
		AccountID:    r.AccountID,
		Token:        r.AuthorizationToken,
		APIURL:       strings.TrimRight(storage.APIURL, "/"),
		VersionedURL: strings.TrimRight(storage.APIURL, "/") + "/" + APIVersion,
		DownloadURL:  strings.TrimRight(storage.DownloadURL, "/"),
		S3APIURL:     storage.S3APIURL,
		BucketID:     deref(storage.BucketID),
		BucketName:   deref(storage.BucketName),
		Prefix:       deref(storage.NamePrefix),
	}
	if c.prefix != "" {
		c.session.Prefix = c.prefix
	}
	if c.session.DownloadURL == "" {
		c.session.DownloadURL = c.session.APIURL
	}
	if r.ApplicationKeyExpirationTimestamp != nil {
		exp := time.UnixMilli(*r.ApplicationKeyExpirationTimestamp)
		c.session.KeyExpiration = &exp
	}

	// keys that are not restricted to a bucket don't name one
	if c.session.BucketID == "" && creds.Bucket != "" {
		id, err := c.lookupBucket(ctx, creds.Bucket)
		if err != nil {
			return nil, &AuthError{Err: err}
		}
		c.session.BucketID = id
		c.session.BucketName = creds.Bucket
	}

	if c.session.BucketID == "" {
		return nil, &AuthError{Err: errors.New("no bucket configured")}
	}
	if creds.Bucket != "" && c.session.BucketName != creds.Bucket {
		return nil, &AuthError{Err: fmt.Errorf("key is restricted to bucket %q, not %q", c.session.BucketName, creds.Bucket)}
	}

	c.logger.Debug().
		Str("api_url", c.session.APIURL).
		Str("bucket", c.session.BucketName).
		Str("bucket_id", c.session.BucketID).
		Str("prefix", c.session.Prefix).
		Msg("authorized account")

	return c, nil
}

// Session returns a copy of the session established by Authorize.
func (c *Client) Session() Session {
	return c.session
}

func (c *Client) lookupBucket(ctx context.Context, name string) (string, error) {
	// https://www.backblaze.com/apidocs/b2-list-buckets
	var r listBucketsResponse
	body := listBucketsRequest{AccountID: c.session.AccountID, BucketName: name}
	if err := c.postJSON(ctx, "b2_list_buckets", body, &r); err != nil {
		return "", err
	}
	for _, b := range r.Buckets {
		if b.BucketName == name {
			return b.BucketID, nil
		}
	}
	return "", fmt.Errorf("bucket %q not found", name)
}

// newRequest builds a request carrying the session token.
func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.session.Token.Reveal())
	return req, nil
}

func (c *Client) postJSON(ctx context.Context, op string, in, out interface{}) error {
	buf, err := json.Marshal(in)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.session.VersionedURL+"/"+op, bytes.NewReader(buf))
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, op, out)
}

// do sends req and decodes a JSON body into out. Non-2xx responses become a
// *RequestError built from B2's error document.
func (c *Client) do(req *http.Request, op string, out interface{}) error {
	resp, err := c.send(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// send performs the round trip and checks the status. The caller owns the
// body of a successful response.
func (c *Client) send(req *http.Request, op string) (*http.Response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug().Str("op", op).Str("method", req.Method).Str("url", redactURL(req.URL)).Msg("request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(op, resp)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	e := &RequestError{Op: op, StatusCode: resp.StatusCode}

	var body errorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil {
		e.Code = body.Code
		e.Message = body.Message
	}
	if resp.StatusCode == http.StatusUnauthorized {
		e.Err = ErrUnauthorized
	}
	return e
}

// redactURL drops the query string before logging.
func redactURL(u *url.URL) string {
	cp := *u
	cp.RawQuery = ""
	cp.User = nil
	return cp.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
