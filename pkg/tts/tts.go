// Package tts turns announcement text into PCM clips for local playback.
package tts

import "context"

// Clip is synthesized speech as PCM16 mono audio.
type Clip struct {
	PCM        []byte
	SampleRate int
}

// Provider is the interface all speech synthesis backends implement.
type Provider interface {
	// Name returns the provider name (e.g. "remote", "openai").
	Name() string

	// Synthesize converts text to a PCM clip.
	Synthesize(ctx context.Context, text string) (*Clip, error)
}
