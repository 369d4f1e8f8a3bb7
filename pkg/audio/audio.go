// Package audio passes the core samples to an output device.
package audio

import (
	"math"
)

// Sink consumes one tick of audio.
// Play must copy the samples, they are views of the core memory.
type Sink interface {
	Play(left, right []float32)
	Pause(v bool)
	Close() error
}

// Discard drops all the samples.
type Discard struct{}

func (Discard) Play(_, _ []float32) {}
func (Discard) Pause(bool)          {}
func (Discard) Close() error        { return nil }

// Interleave merges two channels into LRLR.. float samples.
func Interleave(dst []float32, left, right []float32) []float32 {
	n := min(len(left), len(right))
	dst = grow(dst, n*2)
	for i := 0; i < n; i++ {
		dst[i*2], dst[i*2+1] = left[i], right[i]
	}
	return dst
}

// InterleaveInt16 merges two channels into LRLR.. 16-bit samples.
func InterleaveInt16(dst []int16, left, right []float32) []int16 {
	n := min(len(left), len(right))
	if cap(dst) < n*2 {
		dst = make([]int16, n*2)
	}
	dst = dst[:n*2]
	for i := 0; i < n; i++ {
		dst[i*2], dst[i*2+1] = ToInt16(left[i]), ToInt16(right[i])
	}
	return dst
}

// ToInt16 converts a [-1, 1] sample, out of range values are clipped.
func ToInt16(v float32) int16 {
	if v != v {
		return 0
	}
	if v >= 1 {
		return math.MaxInt16
	}
	if v <= -1 {
		return -math.MaxInt16
	}
	return int16(v * math.MaxInt16)
}

// Int16Bytes writes the samples as little-endian bytes.
func Int16Bytes(dst []byte, pcm []int16) []byte {
	if cap(dst) < len(pcm)*2 {
		dst = make([]byte, len(pcm)*2)
	}
	dst = dst[:len(pcm)*2]
	for i, s := range pcm {
		dst[i*2], dst[i*2+1] = byte(s), byte(s>>8)
	}
	return dst
}

func grow(dst []float32, n int) []float32 {
	if cap(dst) < n {
		return make([]float32, n)
	}
	return dst[:n]
}
