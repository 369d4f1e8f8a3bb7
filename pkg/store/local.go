package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	xos "github.com/giongto35/retrorun/pkg/os"
)

const blobExt = ".blob"

// Local keeps blobs as files in a dir.
// Every key gets the .blob suffix so a key may also be a prefix of another one (sav, sav/info).
type Local struct {
	root string
	lock *xos.Flock
}

// NewLocal opens the dir, only one process at a time may use it.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, errors.New("no local storage path")
	}
	if err := xos.CheckCreateDir(root); err != nil {
		return nil, err
	}
	lock, err := xos.NewFileLock(filepath.Join(root, ".lock"))
	if err != nil {
		return nil, err
	}
	if err = lock.TryLock(); err != nil {
		return nil, fmt.Errorf("save dir %v: %w", root, err)
	}
	return &Local{root: root, lock: lock}, nil
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.Trim(key, "/")))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("bad key %q", key)
	}
	return filepath.Join(l.root, clean+blobExt), nil
}

func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (l *Local) Put(_ context.Context, key string, data []byte) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(p), os.ModeDir|0755); err != nil {
		return err
	}
	return xos.WriteFileAtomic(p, data, 0644)
}

func (l *Local) Remove(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) Close() error { return l.lock.Unlock() }
