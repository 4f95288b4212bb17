package b2api

// Wire types of the B2 native API, v3.
// https://www.backblaze.com/apidocs/introduction-to-the-b2-native-api

type authorizeAccountResponse struct {
	AccountID                         string  `json:"accountId"`
	AuthorizationToken                Token   `json:"authorizationToken"`
	ApplicationKeyExpirationTimestamp *int64  `json:"applicationKeyExpirationTimestamp"`
	APIInfo                           apiInfo `json:"apiInfo"`
}

type apiInfo struct {
	StorageAPI storageAPI `json:"storageApi"`
}

type storageAPI struct {
	APIURL      string  `json:"apiUrl"`
	DownloadURL string  `json:"downloadUrl"`
	S3APIURL    string  `json:"s3ApiUrl"`
	BucketID    *string `json:"bucketId"`
	BucketName  *string `json:"bucketName"`
	NamePrefix  *string `json:"namePrefix"`
}

type listBucketsRequest struct {
	AccountID  string `json:"accountId"`
	BucketName string `json:"bucketName"`
}

type listBucketsResponse struct {
	Buckets []struct {
		BucketID   string `json:"bucketId"`
		BucketName string `json:"bucketName"`
	} `json:"buckets"`
}

type errorResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UploadTicket authorizes exactly one upload. Get a new one for every file.
type UploadTicket struct {
	BucketID           string `json:"bucketId"`
	UploadURL          string `json:"uploadUrl"`
	AuthorizationToken Token  `json:"authorizationToken"`
}

type listFileNamesRequest struct {
	BucketID      string `json:"bucketId"`
	Prefix        string `json:"prefix,omitempty"`
	StartFileName string `json:"startFileName,omitempty"`
	MaxFileCount  int    `json:"maxFileCount"`
}

// ListFileNamesResponse is one page of a file name listing. NextFileName is
// nil once the listing is exhausted.
type ListFileNamesResponse struct {
	Files        []FileInfo `json:"files"`
	NextFileName *string    `json:"nextFileName"`
}

// Names returns the file names of the page in listing order.
func (r *ListFileNamesResponse) Names() []string {
	names := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		names = append(names, f.FileName)
	}
	return names
}

// FileInfo is the subset of B2 file metadata the benchmark cares about.
type FileInfo struct {
	FileID          string `json:"fileId"`
	FileName        string `json:"fileName"`
	ContentLength   int64  `json:"contentLength"`
	ContentSha1     string `json:"contentSha1"`
	ContentType     string `json:"contentType"`
	Action          string `json:"action"`
	UploadTimestamp int64  `json:"uploadTimestamp"`
}
