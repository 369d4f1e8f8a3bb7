package audio

import (
	"os"
	"sync"

	"github.com/giongto35/retrorun/pkg/logger"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Wav records the audio into a 16-bit stereo WAV file.
// Nothing is written while paused.
type Wav struct {
	mu     sync.Mutex
	f      *os.File
	enc    *wav.Encoder
	buf    *goaudio.IntBuffer
	pcm    []int16
	paused bool
	log    *logger.Logger
}

func NewWav(path string, sampleRate int, log *logger.Logger) (*Wav, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("Recording audio into %v", path)
	return &Wav{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, 16, 2, 1),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
		log: log,
	}, nil
}

func (w *Wav) Play(left, right []float32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paused || w.enc == nil {
		return
	}
	w.pcm = InterleaveInt16(w.pcm, left, right)
	if cap(w.buf.Data) < len(w.pcm) {
		w.buf.Data = make([]int, len(w.pcm))
	}
	w.buf.Data = w.buf.Data[:len(w.pcm)]
	for i, s := range w.pcm {
		w.buf.Data[i] = int(s)
	}
	if err := w.enc.Write(w.buf); err != nil {
		w.log.Error().Err(err).Msg("wav write")
	}
}

func (w *Wav) Pause(v bool) {
	w.mu.Lock()
	w.paused = v
	w.mu.Unlock()
}

func (w *Wav) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.enc == nil {
		return nil
	}
	err := w.enc.Close()
	w.enc = nil
	if err2 := w.f.Close(); err == nil {
		err = err2
	}
	return err
}
