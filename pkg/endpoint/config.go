package endpoint

import (
	"fmt"
	"time"
)

// Config holds the tuning surface of the endpoint detector.
//
// The start/end thresholds are deliberately asymmetric: the start vote is
// lower so the onset of speech is caught early, the end vote is higher (and
// energy-gated per frame) so brief pauses inside an utterance do not cut it
// off.
type Config struct {
	// SampleRate of the incoming PCM16 stream in Hz.
	SampleRate int
	// FrameDuration of every frame. Fixed for the detector's lifetime.
	FrameDuration time.Duration

	// PreBuffer is the look-back span kept while idle; its frames are
	// prepended to the utterance when speech starts.
	PreBuffer time.Duration
	// PostBuffer is the look-ahead span voted on while collecting.
	PostBuffer time.Duration

	// MaxChunk is the hard cap on utterance length.
	MaxChunk time.Duration
	// MinChunk is the minimum length for an utterance to be accepted.
	MinChunk time.Duration

	// StartThreshold is the voiced vote fraction that triggers collection.
	StartThreshold float64
	// EndThreshold is the unvoiced vote fraction that ends collection.
	EndThreshold float64

	// FrameEnergyMin gates the per-frame voice label in the end vote.
	FrameEnergyMin float64
	// ChunkEnergyMin is the minimum aggregate RMS for acceptance.
	ChunkEnergyMin float64

	// VADAggressiveness is passed through to the speech-activity engine.
	VADAggressiveness int
}

// DefaultConfig returns the tuning used by the reference deployment.
func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		FrameDuration:     30 * time.Millisecond,
		PreBuffer:         800 * time.Millisecond,
		PostBuffer:        1200 * time.Millisecond,
		MaxChunk:          5 * time.Second,
		MinChunk:          500 * time.Millisecond,
		StartThreshold:    0.55,
		EndThreshold:      0.80,
		FrameEnergyMin:    400,
		ChunkEnergyMin:    300,
		VADAggressiveness: 0,
	}
}

// IsValid validates the configuration.
func (c Config) IsValid() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", c.SampleRate)
	}
	if c.FrameDuration <= 0 {
		return fmt.Errorf("invalid FrameDuration: %v", c.FrameDuration)
	}
	if c.PreBuffer <= 0 || c.PostBuffer <= 0 {
		return fmt.Errorf("invalid buffer spans: pre=%v post=%v", c.PreBuffer, c.PostBuffer)
	}
	if c.MaxChunk <= 0 {
		return fmt.Errorf("invalid MaxChunk: %v", c.MaxChunk)
	}
	if c.MinChunk < 0 || c.MinChunk > c.MaxChunk {
		return fmt.Errorf("invalid MinChunk: %v (MaxChunk is %v)", c.MinChunk, c.MaxChunk)
	}
	if c.StartThreshold <= 0 || c.StartThreshold >= 1 {
		return fmt.Errorf("invalid StartThreshold: %v (must be in (0, 1))", c.StartThreshold)
	}
	if c.EndThreshold <= 0 || c.EndThreshold >= 1 {
		return fmt.Errorf("invalid EndThreshold: %v (must be in (0, 1))", c.EndThreshold)
	}
	if c.FrameEnergyMin < 0 || c.ChunkEnergyMin < 0 {
		return fmt.Errorf("invalid energy gates: frame=%v chunk=%v", c.FrameEnergyMin, c.ChunkEnergyMin)
	}
	if c.VADAggressiveness < 0 || c.VADAggressiveness > 3 {
		return fmt.Errorf("invalid VADAggressiveness: %d (must be 0-3)", c.VADAggressiveness)
	}
	return nil
}

// FrameSamples returns the number of samples in one frame.
func (c Config) FrameSamples() int {
	return c.SampleRate * int(c.FrameDuration/time.Millisecond) / 1000
}

// FrameBytes returns the byte length of one PCM16 mono frame.
func (c Config) FrameBytes() int {
	return c.FrameSamples() * 2
}

// PreRollFrames returns the pre-roll window capacity in frames.
func (c Config) PreRollFrames() int {
	return windowFrames(c.PreBuffer, c.FrameDuration)
}

// PostRollFrames returns the post-roll window capacity in frames.
func (c Config) PostRollFrames() int {
	return windowFrames(c.PostBuffer, c.FrameDuration)
}

func windowFrames(span, frame time.Duration) int {
	n := int(span / frame)
	if n < 1 {
		n = 1
	}
	return n
}
