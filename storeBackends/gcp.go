package storebackends

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"

	"fileconv/logger"
	"fileconv/storage"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS stores objects in a Google Cloud Storage bucket
type GCS struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	name   string
}

// NewGCS opens a client for bucket. credentialsJSON may be raw service
// account JSON, base64 of it, or empty to use application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsJSON string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs backend requires a bucket")
	}

	var opts []option.ClientOption
	if credentialsJSON != "" {
		raw := []byte(credentialsJSON)
		if decoded, err := base64.StdEncoding.DecodeString(credentialsJSON); err == nil {
			raw = decoded
		}
		opts = append(opts, option.WithCredentialsJSON(raw))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	logger.Infof("GCS backend ready (bucket %s)", bucket)
	return &GCS{client: client, bucket: client.Bucket(bucket), name: bucket}, nil
}

func (b *GCS) Put(ctx context.Context, key string, data []byte, meta map[string]string) error {
	wc := b.bucket.Object(key).NewWriter(ctx)
	wc.Metadata = meta

	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("write %s to bucket %s: %w", key, b.name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}
	return nil
}

func (b *GCS) Head(ctx context.Context, key string) (map[string]string, error) {
	attrs, err := b.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return nil, translateGCSError(err)
	}
	return attrs.Metadata, nil
}

func (b *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := b.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, translateGCSError(err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (b *GCS) Delete(ctx context.Context, key string) error {
	err := b.bucket.Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (b *GCS) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var objs []storage.ObjectInfo
	it := b.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s in bucket %s: %w", prefix, b.name, err)
		}
		objs = append(objs, storage.ObjectInfo{
			Key:          attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
		})
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Key < objs[j].Key })
	return objs, nil
}

func (b *GCS) Close() error {
	return b.client.Close()
}

func translateGCSError(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return storage.ErrNotFound
	}
	return err
}
