package storebackends

import (
	"context"
	"fmt"

	"fileconv/config"
	"fileconv/storage"
)

// Open builds the backend named by cfg.Backend. The returned close function
// is never nil.
func Open(ctx context.Context, cfg config.StoreConfig) (storage.Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "s3":
		b, err := NewS3(ctx, S3Options{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open S3 backend: %w", err)
		}
		return b, noop, nil
	case "gcs":
		b, err := NewGCS(ctx, cfg.Bucket, cfg.GCSCredentialsJSON)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open GCS backend: %w", err)
		}
		return b, b.Close, nil
	case "sftp":
		b, err := NewSFTP(ctx, SFTPOptions{
			Host:       cfg.SFTPHost,
			Port:       cfg.SFTPPort,
			User:       cfg.SFTPUser,
			Password:   cfg.SFTPPassword,
			PrivateKey: cfg.SFTPPrivateKey,
			Root:       cfg.SFTPRoot,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open SFTP backend: %w", err)
		}
		return b, b.Close, nil
	case "pebble":
		b, err := OpenPebble(config.GetPebbleStorePath(), nil)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	case "fs":
		b, err := NewFilesystem(config.GetFilesystemStoreDir())
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	case "memory":
		return NewMemory(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
