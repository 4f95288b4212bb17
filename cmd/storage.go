package cmd

import (
	"context"
	"fmt"
	"path"

	"github.com/rs/zerolog"

	"github.com/lumafield/b2-benchmark/config"
	"github.com/lumafield/b2-benchmark/sbmark"
)

// backend is a ready storage client plus the labels that end up in the report.
type backend struct {
	client   sbmark.StorageInterface
	endpoint string
	path     string
}

func newBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendFs:
		return &backend{
			client: sbmark.NewFsClient(&sbmark.FsObjectClientConfig{
				RootPath: cfg.FsRoot,
				Bucket:   cfg.Bucket,
				Prefix:   cfg.Prefix,
				AllPages: cfg.AllPages,
			}),
			endpoint: cfg.FsRoot,
			path:     path.Join(cfg.Bucket, cfg.Prefix),
		}, nil

	case config.BackendS3, config.BackendMinio:
		endpoint, prefix := cfg.S3Endpoint, cfg.Prefix
		if endpoint == "" || prefix == "" {
			// the account knows its S3 endpoint and the prefix of a restricted key
			b2, err := authorize(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			session := b2.Session()
			if endpoint == "" {
				endpoint = session.S3APIURL
			}
			prefix = session.Prefix
		}
		s3cfg := &sbmark.S3ObjectClientConfig{
			Region:            cfg.S3Region,
			Endpoint:          endpoint,
			KeyID:             cfg.KeyID,
			Key:               cfg.Key,
			Bucket:            cfg.Bucket,
			Prefix:            prefix,
			AllPages:          cfg.AllPages,
			Insecure:          cfg.Insecure,
			DisableKeepAlives: cfg.DisableKeepAlives,
			Timeout:           cfg.Timeout,
		}
		b := &backend{endpoint: endpoint, path: path.Join(cfg.Bucket, prefix)}
		var err error
		if cfg.Backend == config.BackendMinio {
			b.client, err = sbmark.NewMinioClient(s3cfg)
		} else {
			b.client, err = sbmark.NewS3Client(ctx, s3cfg)
		}
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("backend", cfg.Backend).Str("endpoint", endpoint).Msg("using s3 compatible api")
		return b, nil

	case config.BackendB2:
		b2, err := authorize(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		session := b2.Session()
		return &backend{
			client:   sbmark.NewB2Client(b2, &sbmark.B2ObjectClientConfig{AllPages: cfg.AllPages}),
			endpoint: session.APIURL,
			path:     path.Join(session.BucketName, session.Prefix),
		}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
