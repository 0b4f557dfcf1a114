package vad

import (
	"fmt"
	"sync"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/voicechess/voicechess/pkg/audio"
)

// SileroConfig configures the Silero VAD engine.
type SileroConfig struct {
	// ModelPath is the path to the silero_vad.onnx model file.
	ModelPath string
	// SampleRate must be 8000 or 16000.
	SampleRate int
	// Threshold is the speech probability threshold. Defaults to 0.5.
	Threshold float32
}

// IsValid validates the engine configuration.
func (c SileroConfig) IsValid() error {
	if c.ModelPath == "" {
		return fmt.Errorf("invalid ModelPath: should not be empty")
	}
	if c.SampleRate != 8000 && c.SampleRate != 16000 {
		return fmt.Errorf("invalid SampleRate: valid values are 8000 and 16000")
	}
	return nil
}

// SileroEngine labels frames with the Silero neural VAD. Unlike the WebRTC
// engine it keeps hysteresis state across frames (the model tracks segment
// boundaries), so a fresh stream should start with Reset.
type SileroEngine struct {
	detector *speech.Detector

	speaking bool
	mu       sync.Mutex
}

// NewSileroEngine loads the Silero model and creates a detector.
func NewSileroEngine(cfg SileroConfig) (*SileroEngine, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = 0.5
	}

	detector, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            cfg.ModelPath,
		SampleRate:           cfg.SampleRate,
		Threshold:            threshold,
		MinSilenceDurationMs: 100,
		SpeechPadMs:          30,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Silero detector: %w", err)
	}

	return &SileroEngine{detector: detector}, nil
}

// IsSpeech implements Engine.
func (e *SileroEngine) IsSpeech(frame []byte) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.detector == nil {
		return false, fmt.Errorf("engine is closed")
	}

	samples := audio.Int16ToFloat32(audio.BytesToInt16(frame))
	segments, err := e.detector.Detect(samples)
	if err != nil {
		return false, fmt.Errorf("silero detect: %w", err)
	}

	for _, seg := range segments {
		if seg.SpeechStartAt > 0 {
			e.speaking = true
		}
		if seg.SpeechEndAt > 0 {
			e.speaking = false
		}
	}
	return e.speaking, nil
}

// Reset implements Engine.
func (e *SileroEngine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.speaking = false
	if e.detector == nil {
		return nil
	}
	if err := e.detector.Reset(); err != nil {
		return fmt.Errorf("silero reset: %w", err)
	}
	return nil
}

// Close implements Engine.
func (e *SileroEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.detector != nil {
		if err := e.detector.Destroy(); err != nil {
			return fmt.Errorf("silero destroy: %w", err)
		}
		e.detector = nil
	}
	return nil
}

var _ Engine = (*SileroEngine)(nil)
