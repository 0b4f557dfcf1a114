// Package asr transcribes captured utterances into chess move text.
//
// Providers receive one complete PCM16 utterance buffer and return the
// spoken command as text (SAN notation, "resign", "draw", ...). Transport
// of the audio to the model is the provider's concern; the endpoint
// detector only hands over bytes.
package asr

import (
	"context"
	"fmt"
)

// Provider is the interface all transcription backends implement.
type Provider interface {
	// Name returns the provider name (e.g. "remote", "openai-whisper").
	Name() string

	// Transcribe converts one PCM16 mono utterance into text.
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}

// ErrorCode classifies transcription failures.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeInvalidConfig
	ErrCodeInvalidAudio
	ErrCodeNetworkError
	ErrCodeProviderError
)

// Error is a transcription error with a classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("asr: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("asr: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
