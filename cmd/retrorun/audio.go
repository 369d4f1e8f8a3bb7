package main

import (
	"fmt"

	"github.com/giongto35/retrorun/pkg/audio"
	"github.com/giongto35/retrorun/pkg/audio/oto"
	"github.com/giongto35/retrorun/pkg/audio/sdl"
	"github.com/giongto35/retrorun/pkg/config"
	"github.com/giongto35/retrorun/pkg/logger"
)

func newSink(conf config.Audio, rate int, log *logger.Logger) (audio.Sink, error) {
	switch conf.Driver {
	case "", "none":
		return audio.Discard{}, nil
	case "wav":
		return audio.NewWav(conf.Wav.Path, rate, log)
	case "sdl":
		return sdl.New(rate, conf.LatencyMs, log)
	case "oto":
		return oto.New(rate, conf.LatencyMs, log)
	}
	return nil, fmt.Errorf("unknown audio driver: %v", conf.Driver)
}
