package store

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/giongto35/retrorun/pkg/logger"
	"google.golang.org/api/option"
)

// GCS keeps blobs in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	log    *logger.Logger
}

// NewGCS makes a GCS store, the default credentials are used when the credentials file is empty.
func NewGCS(ctx context.Context, bucket, credentials string, log *logger.Logger) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("no gcs bucket")
	}
	var opts []option.ClientOption
	if credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCS{client: client, bucket: client.Bucket(bucket), log: log}, nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := g.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func (g *GCS) Put(ctx context.Context, key string, data []byte) error {
	wc := g.bucket.Object(key).NewWriter(ctx)
	wc.ContentType = "application/octet-stream"
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	g.log.Debug().Msgf("Uploaded: %v (%v bytes)", key, len(data))
	return nil
}

func (g *GCS) Remove(ctx context.Context, key string) error {
	err := g.bucket.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCS) Close() error { return g.client.Close() }
