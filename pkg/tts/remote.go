package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voicechess/voicechess/pkg/audio"
)

// RemoteProvider talks to the voice generation server (usually reached
// through an SSH tunnel on localhost).
//
// Request: POST /generate with {"transcript": ...}.
// Response: {"id": ..., "audio_base64": "<WAV>", "sample_rate": ...}.
type RemoteProvider struct {
	baseURL    string
	httpClient *http.Client
}

type remoteRequest struct {
	Transcript  string  `json:"transcript"`
	Temperature float64 `json:"temperature,omitempty"`
	ReturnAudio string  `json:"return_audio,omitempty"`
}

type remoteResponse struct {
	ID          string `json:"id"`
	AudioBase64 string `json:"audio_base64"`
	SampleRate  int    `json:"sample_rate"`
}

// NewRemoteProvider creates a client for the voice generation server.
// baseURL is the server root, e.g. "http://localhost:8000".
func NewRemoteProvider(baseURL string) (*RemoteProvider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("tts: voice server URL is required")
	}

	return &RemoteProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Name returns the provider name.
func (p *RemoteProvider) Name() string {
	return "remote"
}

// Synthesize implements Provider.
func (p *RemoteProvider) Synthesize(ctx context.Context, text string) (*Clip, error) {
	payload, err := json.Marshal(remoteRequest{
		Transcript:  text,
		ReturnAudio: "base64",
	})
	if err != nil {
		return nil, fmt.Errorf("tts: failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tts: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: generation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts: server returned %d: %s", resp.StatusCode, body)
	}

	var r remoteResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("tts: failed to parse server JSON: %w", err)
	}
	if r.AudioBase64 == "" {
		return nil, fmt.Errorf("tts: server response missing audio")
	}

	wav, err := base64.StdEncoding.DecodeString(r.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("tts: failed to decode audio: %w", err)
	}

	pcm, sampleRate, err := audio.DecodeWAV(wav)
	if err != nil {
		return nil, fmt.Errorf("tts: failed to decode WAV: %w", err)
	}
	if r.SampleRate > 0 {
		sampleRate = r.SampleRate
	}

	return &Clip{PCM: pcm, SampleRate: sampleRate}, nil
}

var _ Provider = (*RemoteProvider)(nil)
