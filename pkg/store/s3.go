package store

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/giongto35/retrorun/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 keeps blobs in an S3-compatible bucket.
type S3 struct {
	c      *minio.Client
	bucket string
	log    *logger.Logger
}

func NewS3(endpoint, bucket, key, secret string, secure bool, log *logger.Logger) (*S3, error) {
	c, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(key, secret, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := c.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New("bucket doesn't exist")
	}

	return &S3{c: c, bucket: bucket, log: log}, nil
}

func (s *S3) Get(ctx context.Context, key string) (data []byte, err error) {
	r, err := s.c.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s3err(err)
	}
	defer func() { err = errors.Join(err, r.Close()) }()

	data, err = io.ReadAll(r)
	if err != nil {
		return nil, s3err(err)
	}
	s.log.Debug().Msgf("Downloaded: %v (%v bytes)", key, len(data))
	return data, nil
}

func (s *S3) Put(ctx context.Context, key string, data []byte) error {
	info, err := s.c.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:    "application/octet-stream",
		SendContentMd5: true,
	})
	if err != nil {
		return err
	}
	s.log.Debug().Msgf("Uploaded: %v (%v bytes)", info.Key, info.Size)
	return nil
}

func (s *S3) Remove(ctx context.Context, key string) error {
	err := s.c.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if errors.Is(s3err(err), ErrNotFound) {
		return nil
	}
	return err
}

func (s *S3) Close() error { return nil }

func s3err(err error) error {
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}
