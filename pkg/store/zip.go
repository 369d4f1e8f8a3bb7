package store

import (
	"context"
	"path"

	"github.com/giongto35/retrorun/pkg/compression/zip"
)

// Zip compresses every blob before passing it to the wrapped store.
// Old uncompressed blobs are returned as is.
type Zip struct {
	Store
}

func (z *Zip) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := z.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !zip.Is(data) {
		return data, nil
	}
	d, _, err := zip.Read(data)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (z *Zip) Put(ctx context.Context, key string, data []byte) error {
	compressed, err := zip.Compress(data, path.Base(key))
	if err != nil {
		return err
	}
	return z.Store.Put(ctx, key, compressed)
}
