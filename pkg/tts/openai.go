package tts

import (
	"context"
	"fmt"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openAIDefaultModel = openai.TTSModel1
	openAIDefaultVoice = openai.VoiceOnyx
	// The API returns raw PCM16 at 24 kHz when pcm format is requested.
	openAIPCMSampleRate = 24000
)

// OpenAIProvider synthesizes speech with OpenAI's TTS API.
type OpenAIProvider struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

// NewOpenAIProvider creates an OpenAI TTS provider.
// apiKey falls back to OPENAI_API_KEY when empty.
func NewOpenAIProvider(apiKey string) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("tts: OpenAI API key is required")
	}

	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  openAIDefaultModel,
		voice:  openAIDefaultVoice,
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// SetVoice overrides the default voice. An empty name keeps the default.
func (p *OpenAIProvider) SetVoice(voice string) {
	if voice != "" {
		p.voice = openai.SpeechVoice(voice)
	}
}

// Synthesize implements Provider.
func (p *OpenAIProvider) Synthesize(ctx context.Context, text string) (*Clip, error) {
	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          p.model,
		Input:          text,
		Voice:          p.voice,
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return nil, fmt.Errorf("tts: OpenAI speech request failed: %w", err)
	}
	defer resp.Close()

	pcm, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("tts: failed to read audio stream: %w", err)
	}

	return &Clip{PCM: pcm, SampleRate: openAIPCMSampleRate}, nil
}

var _ Provider = (*OpenAIProvider)(nil)
