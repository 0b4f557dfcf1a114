// Package vad classifies audio frames as voice or non-voice.
//
// An Engine wraps a speech-activity primitive that labels a single PCM16
// frame. The Classifier pairs that label with the frame's RMS energy to
// produce the per-frame Classification consumed by the endpoint detector.
//
// Two engines are provided: WebRTCEngine (the GIPS/WebRTC VAD, tuned by an
// aggressiveness mode) and SileroEngine (neural VAD via ONNX). MockEngine
// supports deterministic tests.
package vad

import (
	"fmt"

	"github.com/voicechess/voicechess/pkg/audio"
)

// Classification is the per-frame voice/energy pair. It is a pure function
// of the frame content: classifying the same frame twice yields the same
// result.
type Classification struct {
	// Voice is the speech/non-speech decision from the engine.
	Voice bool
	// Energy is the RMS amplitude of the frame's samples.
	Energy float64
}

// Engine is a speech-activity primitive yielding a per-frame boolean.
type Engine interface {
	// IsSpeech reports whether the PCM16 frame contains speech.
	IsSpeech(frame []byte) (bool, error)

	// Reset clears any internal engine state before a new audio stream.
	Reset() error

	// Close releases engine resources.
	Close() error
}

// Classifier combines an Engine verdict with RMS energy.
type Classifier struct {
	engine Engine
}

// NewClassifier creates a Classifier backed by the given engine.
func NewClassifier(engine Engine) (*Classifier, error) {
	if engine == nil {
		return nil, fmt.Errorf("vad: engine is required")
	}
	return &Classifier{engine: engine}, nil
}

// Reset clears the engine's stream state. Call it before classifying a new
// audio stream: stateful engines (Silero) carry hysteresis across frames,
// and a verdict left over from a previous stream would mislabel the next
// one's opening silence.
func (c *Classifier) Reset() error {
	if err := c.engine.Reset(); err != nil {
		return fmt.Errorf("vad: reset engine: %w", err)
	}
	return nil
}

// Classify labels one frame. An empty or malformed frame has energy 0.0.
func (c *Classifier) Classify(frame []byte) (Classification, error) {
	voice, err := c.engine.IsSpeech(frame)
	if err != nil {
		return Classification{}, fmt.Errorf("vad: classify frame: %w", err)
	}
	return Classification{
		Voice:  voice,
		Energy: audio.RMS16(frame),
	}, nil
}
