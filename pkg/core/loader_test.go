package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/giongto35/retrorun/pkg/config"
	"github.com/giongto35/retrorun/pkg/logger"
)

func TestFetch(t *testing.T) {
	lib := []byte("\x7fELF not really")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cores/snes9x.so" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(lib)
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "cache")
	path, err := Fetch(context.Background(), srv.URL+"/cores/snes9x.so", dir, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "snes9x.so" {
		t.Errorf("file name %v", path)
	}
	got, _ := os.ReadFile(path)
	if string(got) != string(lib) {
		t.Errorf("content %q", got)
	}

	if _, err = Fetch(context.Background(), srv.URL+"/cores/none.so", dir, logger.Nop()); err == nil {
		t.Errorf("404 should fail")
	}
}

func TestNativeLoaderMissingLib(t *testing.T) {
	load := NativeLoader(config.Core{Lib: filepath.Join(t.TempDir(), "nope.so")}, DefaultAudioLength, logger.Nop())
	_, _, err := load(context.Background())
	var mle *ModuleLoadError
	if !errors.As(err, &mle) {
		t.Fatalf("load() = %v, want ModuleLoadError", err)
	}
}

func TestNativeLoaderBadLib(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "bad.so")
	if err := os.WriteFile(lib, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	load := NativeLoader(config.Core{Lib: lib, Workdir: t.TempDir()}, DefaultAudioLength, logger.Nop())
	_, _, err := load(context.Background())
	var mle *ModuleLoadError
	if !errors.As(err, &mle) || mle.Path != lib {
		t.Fatalf("load() = %v, want ModuleLoadError for %v", err, lib)
	}
}
