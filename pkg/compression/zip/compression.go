// Package zip packs single save blobs into ZIP containers.
package zip

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"errors"
	"io"
)

const Ext = ".zip"

var ErrNotFound = errors.New("zip: no file in archive")

var magic = []byte("PK\x03\x04")

// Compress puts the data as a single file with the given name into a ZIP container.
func Compress(data []byte, name string) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	z, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err = z.Write(data); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read returns the content and the name of the first file in the container.
func Read(zd []byte) ([]byte, string, error) {
	r, err := zip.NewReader(bytes.NewReader(zd), int64(len(zd)))
	if err != nil {
		return nil, "", err
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, "", err
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, "", err
		}
		return b, f.FileInfo().Name(), nil
	}
	return nil, "", ErrNotFound
}

// Is tells if the data looks like a ZIP container.
func Is(data []byte) bool { return bytes.HasPrefix(data, magic) }
