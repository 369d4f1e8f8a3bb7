package config

import (
	flag "github.com/spf13/pflag"

	"github.com/giongto35/retrorun/pkg/os"
)

type Config struct {
	Core       Core
	Emulator   Emulator
	Library    Library
	Storage    Storage
	Audio      Audio
	Input      Input
	Monitoring Monitoring
	Log        Log
}

// Core describes where to find the foreign emulation module.
type Core struct {
	// Lib is the path to the core shared library.
	Lib string `default:"cores/snes9x.so"`
	// Url is used to fetch the lib when it is not found locally.
	Url string
	// Cache is the download dir for fetched libs.
	Cache string `default:"cores"`
	// Workdir is the dir backing the core virtual namespace,
	// a temp dir is used when empty.
	Workdir string
	Debug   bool
}

type Emulator struct {
	SampleRate  int `default:"48000"`
	AudioLength int `default:"8192"`
	MaxCatchUp  int `default:"4"`
	Slots       int `default:"10"`
	Thumbnail   struct {
		Width  int `default:"256"`
		Height int `default:"224"`
	}
}

// Library is the local cartridge collection.
type Library struct {
	BasePath  string   `default:"roms"`
	Supported []string `default:"[sfc,smc,fig,swc,zip]"`
	// Ignored names, a name starting with the dot is matched as a substring.
	Ignored []string
}

type Storage struct {
	// Provider is one of: local, memory, s3, gcs.
	Provider    string `default:"local"`
	Path        string `default:"saves"`
	Prefix      string
	Compression bool
	S3          struct {
		Endpoint        string
		Bucket          string
		AccessKeyId     string
		SecretAccessKey string
		Secure          bool
	}
	GCS struct {
		Bucket      string
		Credentials string
	}
}

type Audio struct {
	// Driver is one of: none, wav, sdl, oto.
	Driver string `default:"none"`
	// LatencyMs caps the amount of queued audio.
	LatencyMs int `default:"100"`
	Wav       struct {
		Path string `default:"retrorun.wav"`
	}
}

type Input struct {
	Remote struct {
		Enabled bool
		Addr    string `default:":9000"`
	}
}

type Monitoring struct {
	Port             int `default:"6601"`
	URLPrefix        string
	MetricEnabled    bool
	ProfilingEnabled bool
}

func (m Monitoring) IsEnabled() bool { return m.MetricEnabled || m.ProfilingEnabled }

type Log struct {
	Debug   bool
	Console bool
	NoColor bool
}

// allows custom config path
var configPath string

// NewConfig loads the config from the default places or panics.
func NewConfig() (conf Config) {
	if err := LoadConfig(&conf, configPath); err != nil {
		panic(err)
	}
	if err := conf.expandSpecialTags(); err != nil {
		panic(err)
	}
	return
}

// ParseFlags updates config values from passed runtime flags.
// Define own flags with default value set to the current config param.
// Don't forget to call flag.Parse().
func (c *Config) ParseFlags(fs *flag.FlagSet) {
	fs.StringVar(&configPath, "conf", configPath, "Set custom configuration file path")
	fs.StringVar(&c.Core.Lib, "core", c.Core.Lib, "Path to the emulation core library")
	fs.StringVar(&c.Core.Url, "core-url", c.Core.Url, "URL to fetch the emulation core from")
	fs.BoolVar(&c.Core.Debug, "core-debug", c.Core.Debug, "Show core debug info (FPS)")
	fs.StringVar(&c.Library.BasePath, "library", c.Library.BasePath, "Cartridge library dir")
	fs.StringVar(&c.Storage.Provider, "storage", c.Storage.Provider, "Save storage provider (local, memory, s3, gcs)")
	fs.StringVar(&c.Storage.Path, "storage-path", c.Storage.Path, "Local save storage path")
	fs.StringVar(&c.Audio.Driver, "audio", c.Audio.Driver, "Audio output (none, wav, sdl, oto)")
	fs.BoolVar(&c.Input.Remote.Enabled, "remote", c.Input.Remote.Enabled, "Enable websocket controllers")
	fs.StringVar(&c.Input.Remote.Addr, "remote-addr", c.Input.Remote.Addr, "Websocket controllers address")
	fs.IntVar(&c.Monitoring.Port, "monitoring.port", c.Monitoring.Port, "Monitoring server port")
	fs.BoolVar(&c.Monitoring.MetricEnabled, "monitoring.metric", c.Monitoring.MetricEnabled, "Enable prometheus metric")
	fs.BoolVar(&c.Log.Debug, "debug", c.Log.Debug, "Debug logging")
}

// expandSpecialTags replaces all the special tags in the config.
func (c *Config) expandSpecialTags() error {
	for _, dir := range []*string{&c.Storage.Path, &c.Library.BasePath, &c.Core.Cache, &c.Core.Workdir, &c.Core.Lib} {
		p, err := os.ExpandUser(*dir)
		if err != nil {
			return err
		}
		*dir = p
	}
	return nil
}
