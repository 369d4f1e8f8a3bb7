// Package oto plays the audio with ebitengine/oto.
package oto

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/giongto35/retrorun/pkg/audio"
	"github.com/giongto35/retrorun/pkg/logger"
)

type player interface {
	Play()
	Pause()
	Close() error
}

// Sink writes into a ring buffer which the oto player pulls from.
type Sink struct {
	ctx    *oto.Context
	player player
	ring   *audio.Ring

	pcm []int16
	b   []byte
	log *logger.Logger
}

func New(rate, latencyMs int, log *logger.Logger) (*Sink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(latencyMs/2) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}
	<-ready

	// 16-bit stereo
	ring := audio.NewRing(rate * 4 * latencyMs / 1000)
	player := ctx.NewPlayer(ring)
	player.Play()
	return &Sink{ctx: ctx, player: player, ring: ring, log: log}, nil
}

func (s *Sink) Play(left, right []float32) {
	s.pcm = audio.InterleaveInt16(s.pcm, left, right)
	s.b = audio.Int16Bytes(s.b, s.pcm)
	_, _ = s.ring.Write(s.b)
}

// Pause stops pulling from the ring, the buffered audio is played on resume.
func (s *Sink) Pause(v bool) {
	if v {
		s.player.Pause()
		return
	}
	s.player.Play()
}

func (s *Sink) Close() error {
	if s.ring.Dropped() > 0 {
		s.log.Debug().Msgf("Audio overflow: %v bytes dropped", s.ring.Dropped())
	}
	return s.player.Close()
}
