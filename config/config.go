package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lumafield/b2-benchmark/b2api"
)

// EnvPrefix is prepended to every configuration key when read from the
// environment, e.g. key-id -> BACKBLAZE_KEY_ID.
const EnvPrefix = "BACKBLAZE"

// ErrMissing is wrapped by Validate when required settings are absent.
var ErrMissing = errors.New("missing required configuration")

const (
	BackendB2    = "b2"
	BackendS3    = "s3"
	BackendMinio = "minio"
	BackendFs    = "fs"
)

var backends = []string{BackendB2, BackendS3, BackendMinio, BackendFs}

const (
	ModeSample     = "sample"
	ModeThroughput = "throughput"
)

var modes = []string{ModeSample, ModeThroughput}

// Config holds everything the benchmark needs. It is built once at startup
// and passed to the constructors; nothing mutates it afterwards.
type Config struct {
	KeyID  string
	Key    string
	Bucket string

	BaseURL string
	Prefix  string

	Backend    string
	S3Endpoint string
	S3Region   string
	FsRoot     string

	Mode        string
	Samples     int
	Threads     int
	DownloadDir string
	AllPages    bool

	Timeout           time.Duration
	DisableKeepAlives bool
	Insecure          bool

	LogPath  string
	LogLevel string

	Description string
	JSONFile    string
	CSVFile     string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base-url", b2api.DefaultBaseURL)
	v.SetDefault("backend", BackendB2)
	v.SetDefault("mode", ModeSample)
	v.SetDefault("samples", 100)
	v.SetDefault("threads", 1)
	v.SetDefault("download-dir", ".")
	v.SetDefault("timeout", 180*time.Second)
	v.SetDefault("log-level", "info")
}

// Load reads .env (if present), the optional config file and the
// environment into a Config and validates it.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		KeyID:             v.GetString("key-id"),
		Key:               v.GetString("key"),
		Bucket:            v.GetString("bucket"),
		BaseURL:           v.GetString("base-url"),
		Prefix:            v.GetString("prefix"),
		Backend:           strings.ToLower(v.GetString("backend")),
		S3Endpoint:        v.GetString("s3-endpoint"),
		S3Region:          v.GetString("s3-region"),
		FsRoot:            v.GetString("fs-root"),
		Mode:              strings.ToLower(v.GetString("mode")),
		Samples:           v.GetInt("samples"),
		Threads:           v.GetInt("threads"),
		DownloadDir:       v.GetString("download-dir"),
		AllPages:          v.GetBool("all-pages"),
		Timeout:           v.GetDuration("timeout"),
		DisableKeepAlives: v.GetBool("disable-keepalives"),
		Insecure:          v.GetBool("insecure"),
		LogPath:           v.GetString("log-path"),
		LogLevel:          v.GetString("log-level"),
		Description:       v.GetString("description"),
		JSONFile:          v.GetString("json"),
		CSVFile:           v.GetString("csv"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails if a required setting is missing or a value is out of range.
// The fs backend needs no credentials.
func (c *Config) Validate() error {
	var missing []string
	if c.Backend != BackendFs {
		if c.KeyID == "" {
			missing = append(missing, EnvPrefix+"_KEY_ID")
		}
		if c.Key == "" {
			missing = append(missing, EnvPrefix+"_KEY")
		}
	}
	if c.Bucket == "" {
		missing = append(missing, EnvPrefix+"_BUCKET")
	}
	if c.Backend == BackendFs && c.FsRoot == "" {
		missing = append(missing, EnvPrefix+"_FS_ROOT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	if !contains(backends, c.Backend) {
		return fmt.Errorf("unknown backend %q, want one of %s", c.Backend, strings.Join(backends, ", "))
	}
	if !contains(modes, c.Mode) {
		return fmt.Errorf("unknown mode %q, want one of %s", c.Mode, strings.Join(modes, ", "))
	}
	if c.Samples < 1 {
		return fmt.Errorf("samples must be at least 1, got %d", c.Samples)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// Credentials returns the B2 application key and bucket.
func (c *Config) Credentials() b2api.Credentials {
	return b2api.Credentials{
		KeyID:  c.KeyID,
		Key:    c.Key,
		Bucket: c.Bucket,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
