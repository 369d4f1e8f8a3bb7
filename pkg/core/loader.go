package core

import (
	"context"
	"os"

	"github.com/cavaliercoder/grab"
	"github.com/giongto35/retrorun/pkg/config"
	"github.com/giongto35/retrorun/pkg/logger"
	xos "github.com/giongto35/retrorun/pkg/os"
	"github.com/spf13/afero"
)

// NativeLoader opens a core shared library from the config.
// The lib is downloaded from conf.Url when it is missing.
// The core files live in conf.Workdir or in a new temp dir.
func NativeLoader(conf config.Core, audioLength int, log *logger.Logger) Loader {
	return func(ctx context.Context) (ABI, afero.Fs, error) {
		lib := conf.Lib
		if !xos.Exists(lib) {
			if conf.Url == "" {
				return nil, nil, &ModuleLoadError{Path: lib, Err: xos.ErrNotExist}
			}
			path, err := Fetch(ctx, conf.Url, conf.Cache, log)
			if err != nil {
				return nil, nil, &ModuleLoadError{Path: conf.Url, Err: err}
			}
			lib = path
		}

		dir := conf.Workdir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "retrorun-")
			if err != nil {
				return nil, nil, &ModuleLoadError{Path: lib, Err: err}
			}
			dir = tmp
		} else if err := xos.CheckCreateDir(dir); err != nil {
			return nil, nil, &ModuleLoadError{Path: lib, Err: err}
		}

		abi, err := openNative(lib, dir, audioLength)
		if err != nil {
			return nil, nil, &ModuleLoadError{Path: lib, Err: err}
		}
		log.Info().Msgf("Core: %v, workdir: %v", lib, dir)
		return abi, afero.NewBasePathFs(afero.NewOsFs(), dir), nil
	}
}

// Fetch downloads a core into the dir, returns the path of the file.
func Fetch(ctx context.Context, url, dir string, log *logger.Logger) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := xos.CheckCreateDir(dir); err != nil {
		return "", err
	}
	req, err := grab.NewRequest(dir, url)
	if err != nil {
		return "", err
	}
	resp := grab.NewClient().Do(req.WithContext(ctx))
	if err = resp.Err(); err != nil {
		return "", err
	}
	log.Info().Msgf("Downloaded [%v] %s", resp.HTTPResponse.Status, resp.Filename)
	return resp.Filename, nil
}
