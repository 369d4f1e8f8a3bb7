// Package store keeps save blobs in a key-value storage.
//
// Keys are slash separated paths, e.g. retrorun/<fingerprint>/battery/sav.
package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/giongto35/retrorun/pkg/config"
	"github.com/giongto35/retrorun/pkg/logger"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNoFingerprint = errors.New("no content fingerprint")
)

type Store interface {
	// Get returns the blob or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// Remove deletes the blob, a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}

// Namespace isolates the saves of one cartridge.
// It is derived from the content fingerprint, never from a file name.
type Namespace struct {
	Root        string
	Fingerprint string
}

func NewNamespace(root, fingerprint string) (Namespace, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return Namespace{}, ErrNoFingerprint
	}
	if strings.ContainsAny(fingerprint, `/\`) || fingerprint == "." || fingerprint == ".." {
		return Namespace{}, fmt.Errorf("bad fingerprint %q", fingerprint)
	}
	return Namespace{Root: strings.Trim(root, "/"), Fingerprint: fingerprint}, nil
}

// Prefix returns the key prefix of the namespace with the trailing slash.
func (n Namespace) Prefix() string { return n.Key() + "/" }

// Key makes a store key inside the namespace.
func (n Namespace) Key(parts ...string) string {
	return path.Join(append([]string{n.Root, n.Fingerprint}, parts...)...)
}

func (n Namespace) String() string { return n.Key() }

func (n Namespace) IsZero() bool { return n.Fingerprint == "" }

// New makes a store from the config.
func New(conf config.Storage, log *logger.Logger) (st Store, err error) {
	log = log.Module("store")
	switch conf.Provider {
	case "memory":
		st = NewMemory()
	case "local", "":
		st, err = NewLocal(conf.Path)
	case "s3":
		s3 := conf.S3
		st, err = NewS3(s3.Endpoint, s3.Bucket, s3.AccessKeyId, s3.SecretAccessKey, s3.Secure, log)
	case "gcs":
		st, err = NewGCS(context.Background(), conf.GCS.Bucket, conf.GCS.Credentials, log)
	default:
		err = fmt.Errorf("unknown storage provider: %v", conf.Provider)
	}
	if err != nil {
		return nil, err
	}
	if conf.Compression {
		st = &Zip{Store: st}
	}
	log.Info().Msgf("Save storage: %v (zip: %v)", conf.Provider, conf.Compression)
	return st, nil
}
