// Package games finds cartridge images on the disk.
package games

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/giongto35/retrorun/pkg/compression/zip"
	"github.com/giongto35/retrorun/pkg/config"
	"github.com/giongto35/retrorun/pkg/logger"
)

// GameMetadata is a cartridge file of the library.
type GameMetadata struct {
	Name string // the display name of the game
	Path string // the path relative to the library base path
	Type string // the file extension (e.g. sfc, zip)
}

// Cartridge is a loaded cartridge image.
type Cartridge struct {
	Name string
	Data []byte
	// Fingerprint is the hex MD5 of the image, used as the save namespace.
	Fingerprint string
}

type Library struct {
	path      string
	supported map[string]struct{}
	ignored   []string

	mu    sync.Mutex
	games map[string]GameMetadata
	log   *logger.Logger
}

func NewLib(conf config.Library, log *logger.Logger) *Library {
	dir, err := filepath.Abs(conf.BasePath)
	if err != nil {
		log.Error().Err(err).Str("dir", conf.BasePath).Msg("Lib has invalid source")
		dir = conf.BasePath
	}
	supported := make(map[string]struct{}, len(conf.Supported))
	for _, s := range conf.Supported {
		supported[strings.TrimPrefix(strings.ToLower(s), ".")] = struct{}{}
	}
	return &Library{
		path:      dir,
		supported: supported,
		ignored:   conf.Ignored,
		games:     map[string]GameMetadata{},
		log:       log.Module("lib"),
	}
}

// Scan reads the library dir, games with duplicate names are merged.
func (lib *Library) Scan() error {
	start := time.Now()
	games := make(map[string]GameMetadata)
	err := filepath.WalkDir(lib.path, func(path string, info fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if info == nil || info.IsDir() || !lib.isExtAllowed(path) {
			return nil
		}
		meta := metadata(path, lib.path)
		if !lib.isIgnored(meta.Name) {
			games[meta.Name] = meta
		}
		return nil
	})
	if err != nil {
		lib.log.Error().Err(err).Str("dir", lib.path).Msg("Lib scan... failed")
		return err
	}
	lib.mu.Lock()
	lib.games = games
	lib.mu.Unlock()
	lib.log.Debug().Msgf("Lib scan... completed: %v games in %v", len(games), time.Since(start))
	return nil
}

// GetAll returns all the games sorted by name.
func (lib *Library) GetAll() []GameMetadata {
	lib.mu.Lock()
	res := make([]GameMetadata, 0, len(lib.games))
	for _, g := range lib.games {
		res = append(res, g)
	}
	lib.mu.Unlock()
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// FindGameByName returns the game with its full path.
func (lib *Library) FindGameByName(name string) (GameMetadata, string, bool) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	g, ok := lib.games[name]
	if !ok {
		return GameMetadata{}, "", false
	}
	return g, filepath.Join(lib.path, g.Path), true
}

func (lib *Library) isExtAllowed(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	_, ok := lib.supported[ext[1:]]
	return ok
}

func (lib *Library) isIgnored(name string) bool {
	for _, k := range lib.ignored {
		if name == k {
			return true
		}
		if len(k) > 0 && k[0] == '.' && strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// metadata returns game info from a path
func metadata(path string, basePath string) GameMetadata {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	relPath, _ := filepath.Rel(basePath, path)

	return GameMetadata{
		Name: strings.TrimSuffix(name, ext),
		Type: strings.ToLower(ext[1:]),
		Path: relPath,
	}
}

// Open reads a cartridge file, zipped images are unpacked.
// The fingerprint is taken from the unpacked image.
func Open(path string) (*Cartridge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if zip.Is(data) {
		unpacked, _, err := zip.Read(data)
		if err != nil {
			return nil, fmt.Errorf("bad archive %v: %w", path, err)
		}
		data = unpacked
	}
	sum := md5.Sum(data)
	return &Cartridge{Name: name, Data: data, Fingerprint: hex.EncodeToString(sum[:])}, nil
}
