// Package audio provides PCM utilities and microphone/speaker access.
//
// All audio in this project is linear 16-bit signed PCM, little-endian,
// single channel. The package covers the small set of primitives the rest
// of the system needs: RMS energy measurement, WAV container glue for the
// transcription and speech collaborators, a malgo-backed capture device
// that delivers fixed-duration frames, and a blocking playback helper.
package audio

import (
	"encoding/binary"
	"math"
)

const (
	// BytesPerSample is the size of one 16-bit PCM sample.
	BytesPerSample = 2
)

// RMS16 returns the root-mean-square amplitude of int16 little-endian PCM.
// Empty or truncated input yields 0.0.
func RMS16(pcm []byte) float64 {
	n := len(pcm) / BytesPerSample
	if n == 0 {
		return 0.0
	}

	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2])))
		sum += s * s
	}

	return math.Sqrt(sum / float64(n))
}

// BytesToInt16 converts little-endian PCM bytes to int16 samples.
func BytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return samples
}

// Int16ToBytes converts int16 samples to little-endian PCM bytes.
func Int16ToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}

// Int16ToFloat32 converts int16 samples to normalized float32 in [-1, 1].
func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// SineTone generates a PCM16 sine tone. Used for the listen cue.
func SineTone(freqHz float64, durMs int, sampleRate int, amplitude float64) []byte {
	n := sampleRate * durMs / 1000
	samples := make([]int16, n)
	for i := range samples {
		v := amplitude * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate))
		samples[i] = int16(v * 32767)
	}
	return Int16ToBytes(samples)
}
