package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/giongto35/retrorun/pkg/logger"
	"github.com/go-audio/wav"
)

func TestToInt16(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{in: 0, want: 0},
		{in: 1, want: math.MaxInt16},
		{in: 2, want: math.MaxInt16},
		{in: -1, want: -math.MaxInt16},
		{in: -5, want: -math.MaxInt16},
		{in: 0.5, want: 16383},
		{in: float32(math.NaN()), want: 0},
	}
	for _, tt := range tests {
		if got := ToInt16(tt.in); got != tt.want {
			t.Errorf("ToInt16(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInterleave(t *testing.T) {
	l, r := []float32{1, 2, 3}, []float32{-1, -2, -3}
	got := Interleave(nil, l, r)
	want := []float32{1, -1, 2, -2, 3, -3}
	if len(got) != len(want) {
		t.Fatalf("len %v, want %v", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %v = %v, want %v", i, got[i], want[i])
		}
	}

	pcm := InterleaveInt16(nil, []float32{0, 1}, []float32{-1, 0})
	if pcm[0] != 0 || pcm[1] != -math.MaxInt16 || pcm[2] != math.MaxInt16 || pcm[3] != 0 {
		t.Errorf("InterleaveInt16() = %v", pcm)
	}
	if b := Int16Bytes(nil, []int16{0x0102}); b[0] != 0x02 || b[1] != 0x01 {
		t.Errorf("Int16Bytes() = %v", b)
	}
}

func TestResample(t *testing.T) {
	tests := []struct {
		name string
		src  []int16
		dst  int
		want []int16
	}{
		{name: "same", src: []int16{0, 0, 10, 10}, dst: 4, want: []int16{0, 0, 10, 10}},
		{name: "stretch", src: []int16{0, 0, 10, 20}, dst: 6, want: []int16{0, 0, 5, 10, 10, 20}},
		{name: "single pair", src: []int16{7, 8}, dst: 4, want: []int16{7, 8, 7, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]int16, tt.dst)
			Resample(dst, tt.src)
			for i := range tt.want {
				if dst[i] != tt.want[i] {
					t.Errorf("Resample() = %v, want %v", dst, tt.want)
					break
				}
			}
		})
	}
	if n := ResampledLen(800, 48000, 44100); n != 735*2 {
		t.Errorf("ResampledLen() = %v", n)
	}
}

func TestWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWav(path, 48000, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	frame := make([]float32, 800)
	w.Play(frame, frame)
	w.Pause(true)
	w.Play(frame, frame)
	w.Pause(false)
	w.Play(frame, frame)
	if err = w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatalf("bad wav file")
	}
	if dec.SampleRate != 48000 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Errorf("format %v/%v/%v", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if len(buf.Data) != 2*800*2 {
		t.Errorf("%v samples, want %v", len(buf.Data), 2*800*2)
	}
}
