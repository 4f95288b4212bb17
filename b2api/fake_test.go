package b2api

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
)

// fakeB2 is an in-memory stand-in for the parts of the B2 native API the
// client talks to.
type fakeB2 struct {
	t      *testing.T
	server *httptest.Server

	keyID       string
	key         string
	token       string
	uploadToken string
	bucketID    string
	bucketName  string
	prefix      string
	restricted  bool
	expiresAt   *int64

	userAgent string

	mu      sync.Mutex
	objects map[string][]byte
	calls   map[string]int
}

func newFakeB2(t *testing.T, opts ...func(*fakeB2)) *fakeB2 {
	f := &fakeB2{
		t:           t,
		keyID:       "key-id",
		key:         "secret-key",
		token:       "account-token-123",
		uploadToken: "upload-token-456",
		bucketID:    "bucket-1",
		bucketName:  "bench",
		restricted:  true,
		objects:     map[string][]byte{},
		calls:       map[string]int{},
	}
	for _, opt := range opts {
		opt(f)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/b2api/v3/b2_authorize_account", f.authorize)
	mux.HandleFunc("/b2api/v3/b2_list_buckets", f.listBuckets)
	mux.HandleFunc("/b2api/v3/b2_get_upload_url", f.getUploadURL)
	mux.HandleFunc("/b2api/v3/b2_list_file_names", f.listFileNames)
	mux.HandleFunc("/upload", f.upload)
	mux.HandleFunc("/file/", f.download)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeB2) put(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = data
}

func (f *fakeB2) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeB2) rotateToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeB2) accountToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeB2) hit(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]interface{}{"status": status, "code": code, "message": msg})
}

func (f *fakeB2) checkToken(w http.ResponseWriter, r *http.Request, want string) bool {
	if r.Header.Get("Authorization") != want {
		writeError(w, http.StatusUnauthorized, "bad_auth_token", "invalid authorization token")
		return false
	}
	return true
}

func (f *fakeB2) authorize(w http.ResponseWriter, r *http.Request) {
	f.hit("b2_authorize_account")
	f.mu.Lock()
	f.userAgent = r.Header.Get("User-Agent")
	f.mu.Unlock()
	id, key, ok := r.BasicAuth()
	if !ok || id != f.keyID || key != f.key {
		writeError(w, http.StatusUnauthorized, "unauthorized", "bad key")
		return
	}

	storage := map[string]interface{}{
		"apiUrl":      f.server.URL,
		"downloadUrl": f.server.URL,
		"s3ApiUrl":    "https://s3.us-west-004.backblazeb2.com",
		"bucketId":    nil,
		"bucketName":  nil,
		"namePrefix":  nil,
	}
	if f.restricted {
		storage["bucketId"] = f.bucketID
		storage["bucketName"] = f.bucketName
		storage["namePrefix"] = f.prefix
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accountId":                         "account-1",
		"authorizationToken":                f.accountToken(),
		"applicationKeyExpirationTimestamp": f.expiresAt,
		"apiInfo":                           map[string]interface{}{"storageApi": storage},
	})
}

func (f *fakeB2) listBuckets(w http.ResponseWriter, r *http.Request) {
	f.hit("b2_list_buckets")
	if !f.checkToken(w, r, f.accountToken()) {
		return
	}
	var req struct {
		AccountID  string `json:"accountId"`
		BucketName string `json:"bucketName"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	buckets := []map[string]string{}
	if req.BucketName == f.bucketName {
		buckets = append(buckets, map[string]string{"bucketId": f.bucketID, "bucketName": f.bucketName})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"buckets": buckets})
}

func (f *fakeB2) getUploadURL(w http.ResponseWriter, r *http.Request) {
	f.hit("b2_get_upload_url")
	if !f.checkToken(w, r, f.accountToken()) {
		return
	}
	if r.URL.Query().Get("bucketId") != f.bucketID {
		writeError(w, http.StatusBadRequest, "bad_request", "unknown bucket")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"bucketId":           f.bucketID,
		"uploadUrl":          f.server.URL + "/upload",
		"authorizationToken": f.uploadToken,
	})
}

func (f *fakeB2) upload(w http.ResponseWriter, r *http.Request) {
	f.hit("b2_upload_file")
	if !f.checkToken(w, r, f.uploadToken) {
		return
	}
	data, _ := io.ReadAll(r.Body)
	// B2 needs the exact length up front, no chunked uploads
	if r.ContentLength != int64(len(data)) {
		writeError(w, http.StatusBadRequest, "bad_request", "missing or wrong Content-Length")
		return
	}
	sum := sha1.Sum(data)
	if r.Header.Get("X-Bz-Content-Sha1") != hex.EncodeToString(sum[:]) {
		writeError(w, http.StatusBadRequest, "bad_request", "checksum did not match data received")
		return
	}
	name, err := b2Unescape(r.Header.Get("X-Bz-File-Name"))
	if err != nil || name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "bad file name")
		return
	}
	f.put(name, data)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fileId":        "file-" + name,
		"fileName":      name,
		"contentLength": len(data),
		"contentSha1":   hex.EncodeToString(sum[:]),
		"contentType":   r.Header.Get("Content-Type"),
		"action":        "upload",
	})
}

func (f *fakeB2) listFileNames(w http.ResponseWriter, r *http.Request) {
	f.hit("b2_list_file_names")
	if !f.checkToken(w, r, f.accountToken()) {
		return
	}
	var req struct {
		BucketID      string `json:"bucketId"`
		Prefix        string `json:"prefix"`
		StartFileName string `json:"startFileName"`
		MaxFileCount  int    `json:"maxFileCount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.MaxFileCount < 1 || req.MaxFileCount > 10000 {
		writeError(w, http.StatusBadRequest, "bad_request", "maxFileCount out of range")
		return
	}

	f.mu.Lock()
	var names []string
	for name := range f.objects {
		if strings.HasPrefix(name, req.Prefix) && name >= req.StartFileName {
			names = append(names, name)
		}
	}
	f.mu.Unlock()
	sort.Strings(names)

	var next interface{}
	if len(names) > req.MaxFileCount {
		next = names[req.MaxFileCount]
		names = names[:req.MaxFileCount]
	}
	files := make([]map[string]interface{}, 0, len(names))
	for _, n := range names {
		files = append(files, map[string]interface{}{"fileName": n, "action": "upload"})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"files": files, "nextFileName": next})
}

func (f *fakeB2) download(w http.ResponseWriter, r *http.Request) {
	f.hit("b2_download_file_by_name")
	if !f.checkToken(w, r, f.accountToken()) {
		return
	}
	rest := strings.TrimPrefix(r.URL.EscapedPath(), "/file/")
	rawBucket, rawName, _ := strings.Cut(rest, "/")
	bucket, err := b2Unescape(rawBucket)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "bad bucket name")
		return
	}
	name, err := b2Unescape(rawName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "bad file name")
		return
	}
	if bucket != f.bucketName {
		writeError(w, http.StatusNotFound, "not_found", "bucket not found")
		return
	}
	f.mu.Lock()
	data, ok := f.objects[name]
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "file not present: "+name)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

// b2Unescape decodes file names the way B2 does: percent escapes, and a bare
// '+' is a space.
func b2Unescape(s string) (string, error) {
	return url.QueryUnescape(s)
}

func (f *fakeB2) agent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userAgent
}

func (f *fakeB2) creds() Credentials {
	return Credentials{KeyID: f.keyID, Key: f.key, Bucket: f.bucketName}
}
