package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/voicechess/voicechess/pkg/audio"
)

// RemoteProvider sends utterances to the chess transcription server (an
// audio-understanding model that answers directly in SAN). The server is
// usually reached through an SSH tunnel on localhost.
//
// Request: multipart/form-data POST with an "audio" WAV file field.
// Response: {"transcription": "<SAN move>"}, with a {"text": ...} fallback
// used by older server builds.
type RemoteProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteProvider creates a client for the transcription server.
// baseURL is the full endpoint, e.g. "http://localhost:8080/transcribe".
func NewRemoteProvider(baseURL string) (*RemoteProvider, error) {
	if baseURL == "" {
		return nil, &Error{
			Code:    ErrCodeInvalidConfig,
			Message: "transcription server URL is required",
		}
	}

	return &RemoteProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Name returns the provider name.
func (p *RemoteProvider) Name() string {
	return "remote"
}

// Transcribe implements Provider.
func (p *RemoteProvider) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if len(pcm) == 0 {
		return "", &Error{Code: ErrCodeInvalidAudio, Message: "utterance is empty"}
	}

	wav := audio.EncodeWAV(pcm, sampleRate, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return "", &Error{Code: ErrCodeUnknown, Message: "failed to build request", Err: err}
	}
	if _, err := part.Write(wav); err != nil {
		return "", &Error{Code: ErrCodeUnknown, Message: "failed to build request", Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &Error{Code: ErrCodeUnknown, Message: "failed to build request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, &body)
	if err != nil {
		return "", &Error{Code: ErrCodeUnknown, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &Error{Code: ErrCodeNetworkError, Message: "transcription request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Code: ErrCodeNetworkError, Message: "failed to read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Code:    ErrCodeProviderError,
			Message: fmt.Sprintf("server returned %d: %s", resp.StatusCode, respBody),
		}
	}

	var payload struct {
		Transcription string `json:"transcription"`
		Text          string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", &Error{Code: ErrCodeProviderError, Message: "failed to parse server JSON", Err: err}
	}

	if payload.Transcription != "" {
		return payload.Transcription, nil
	}
	if payload.Text != "" {
		log.Printf("[asr] using 'text' key from server JSON")
		return payload.Text, nil
	}
	return "", &Error{
		Code:    ErrCodeProviderError,
		Message: "server response missing transcription/text",
	}
}

var _ Provider = (*RemoteProvider)(nil)
