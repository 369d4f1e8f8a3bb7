// Package sdl plays the audio with an SDL queue device.
package sdl

import (
	"github.com/giongto35/retrorun/pkg/audio"
	"github.com/giongto35/retrorun/pkg/logger"
	"github.com/veandco/go-sdl2/sdl"
)

// device is the SDL queue API of an opened audio device.
type device interface {
	queued() uint32
	queue(b []byte) error
	pause(v bool)
	close()
}

type sdlDevice sdl.AudioDeviceID

func (d sdlDevice) queued() uint32       { return sdl.GetQueuedAudioSize(sdl.AudioDeviceID(d)) }
func (d sdlDevice) queue(b []byte) error { return sdl.QueueAudio(sdl.AudioDeviceID(d), b) }
func (d sdlDevice) pause(v bool)         { sdl.PauseAudioDevice(sdl.AudioDeviceID(d), v) }
func (d sdlDevice) close() {
	sdl.CloseAudioDevice(sdl.AudioDeviceID(d))
	sdl.QuitSubSystem(sdl.INIT_AUDIO)
}

type Sink struct {
	dev       device
	rate      int
	devRate   int
	maxQueued uint32

	pcm []int16
	out []int16
	b   []byte
	log *logger.Logger
}

// New opens the default audio device.
// Samples are dropped when more than latencyMs of audio is queued.
func New(rate, latencyMs int, log *logger.Logger) (*Sink, error) {
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return nil, err
	}
	want := &sdl.AudioSpec{
		Freq:     int32(rate),
		Format:   sdl.AUDIO_S16LSB,
		Channels: 2,
		Samples:  1024,
	}
	var got sdl.AudioSpec
	id, err := sdl.OpenAudioDevice("", false, want, &got, sdl.AUDIO_ALLOW_FREQUENCY_CHANGE)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_AUDIO)
		return nil, err
	}
	s := newSink(sdlDevice(id), rate, int(got.Freq), latencyMs, log)
	if s.devRate != rate {
		log.Info().Msgf("Audio device rate %v, resampling from %v", s.devRate, rate)
	}
	s.dev.pause(false)
	return s, nil
}

func newSink(dev device, rate, devRate, latencyMs int, log *logger.Logger) *Sink {
	return &Sink{
		dev:       dev,
		rate:      rate,
		devRate:   devRate,
		maxQueued: uint32(devRate * 4 * latencyMs / 1000),
		log:       log,
	}
}

func (s *Sink) Play(left, right []float32) {
	if s.dev.queued() > s.maxQueued {
		return
	}
	s.pcm = audio.InterleaveInt16(s.pcm, left, right)
	out := s.pcm
	if s.devRate != s.rate {
		n := audio.ResampledLen(len(s.pcm)/2, s.rate, s.devRate)
		if cap(s.out) < n {
			s.out = make([]int16, n)
		}
		s.out = s.out[:n]
		audio.Resample(s.out, s.pcm)
		out = s.out
	}
	s.b = audio.Int16Bytes(s.b, out)
	if err := s.dev.queue(s.b); err != nil {
		s.log.Warn().Err(err).Msg("queue audio")
	}
}

// Pause stops the device, the queued audio is played on resume.
func (s *Sink) Pause(v bool) { s.dev.pause(v) }

func (s *Sink) Close() error {
	s.dev.close()
	return nil
}
