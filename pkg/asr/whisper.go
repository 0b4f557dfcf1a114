package asr

import (
	"bytes"
	"context"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/voicechess/voicechess/pkg/audio"
)

// WhisperProvider transcribes utterances with OpenAI's Whisper API.
// A prompt biases the model towards chess vocabulary.
type WhisperProvider struct {
	client *openai.Client
	model  string
	prompt string
}

const whisperChessPrompt = "Chess moves in algebraic notation, for example: e4, Nf3, Bxc6, O-O, Qxe5, resign, draw."

// NewWhisperProvider creates an OpenAI Whisper provider.
// apiKey falls back to OPENAI_API_KEY when empty.
func NewWhisperProvider(apiKey string) (*WhisperProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, &Error{
			Code:    ErrCodeInvalidConfig,
			Message: "OpenAI API key is required",
		}
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &WhisperProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  openai.Whisper1,
		prompt: whisperChessPrompt,
	}, nil
}

// Name returns the provider name.
func (p *WhisperProvider) Name() string {
	return "openai-whisper"
}

// Transcribe implements Provider.
func (p *WhisperProvider) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if len(pcm) == 0 {
		return "", &Error{Code: ErrCodeInvalidAudio, Message: "utterance is empty"}
	}

	wav := audio.EncodeWAV(pcm, sampleRate, 1)

	req := openai.AudioRequest{
		Model:    p.model,
		FilePath: "audio.wav", // filename hint for the API
		Reader:   bytes.NewReader(wav),
		Prompt:   p.prompt,
	}

	resp, err := p.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", &Error{
			Code:    ErrCodeProviderError,
			Message: "Whisper API request failed",
			Err:     err,
		}
	}

	return resp.Text, nil
}

var _ Provider = (*WhisperProvider)(nil)
