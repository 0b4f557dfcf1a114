package vad

import (
	"fmt"
	"sync"

	webrtcvad "github.com/baabaaox/go-webrtcvad"
)

// WebRTCConfig configures the WebRTC VAD engine.
type WebRTCConfig struct {
	// SampleRate must be 8000, 16000, 32000 or 48000 Hz.
	SampleRate int
	// Aggressiveness tunes the primitive: 0 (least aggressive, favors
	// detecting speech) through 3 (most aggressive, favors rejecting noise).
	Aggressiveness int
}

// IsValid validates the engine configuration.
func (c WebRTCConfig) IsValid() error {
	switch c.SampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return fmt.Errorf("invalid SampleRate: %d (must be 8000, 16000, 32000 or 48000)", c.SampleRate)
	}
	if c.Aggressiveness < 0 || c.Aggressiveness > 3 {
		return fmt.Errorf("invalid Aggressiveness: %d (must be 0-3)", c.Aggressiveness)
	}
	return nil
}

// WebRTCEngine labels frames with the WebRTC voice activity detector.
// Frames must be 10, 20 or 30 ms of PCM16 at the configured sample rate.
type WebRTCEngine struct {
	cfg  WebRTCConfig
	inst webrtcvad.VadInst
	mu   sync.Mutex
}

// NewWebRTCEngine creates and initializes a WebRTC VAD instance.
func NewWebRTCEngine(cfg WebRTCConfig) (*WebRTCEngine, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	inst := webrtcvad.Create()
	if err := webrtcvad.Init(inst); err != nil {
		webrtcvad.Free(inst)
		return nil, fmt.Errorf("failed to initialize WebRTC VAD: %w", err)
	}
	if err := webrtcvad.SetMode(inst, cfg.Aggressiveness); err != nil {
		webrtcvad.Free(inst)
		return nil, fmt.Errorf("failed to set VAD mode: %w", err)
	}

	return &WebRTCEngine{cfg: cfg, inst: inst}, nil
}

// IsSpeech implements Engine.
func (e *WebRTCEngine) IsSpeech(frame []byte) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inst == nil {
		return false, fmt.Errorf("engine is closed")
	}

	frameLength := len(frame) / 2
	active, err := webrtcvad.Process(e.inst, e.cfg.SampleRate, frame, frameLength)
	if err != nil {
		return false, fmt.Errorf("WebRTC VAD process: %w", err)
	}
	return active, nil
}

// Reset implements Engine. The WebRTC VAD carries no stream state that
// needs resetting between utterances.
func (e *WebRTCEngine) Reset() error {
	return nil
}

// Close implements Engine.
func (e *WebRTCEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inst != nil {
		webrtcvad.Free(e.inst)
		e.inst = nil
	}
	return nil
}

var _ Engine = (*WebRTCEngine)(nil)
