package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI TTS accepts at most 4096 characters per request; leave some buffer.
const openAIRequestLimit = 4000

// Ensure OpenAIProvider implements the Provider interface.
var _ Provider = (*OpenAIProvider)(nil)

// OpenAIProvider generates narration through the OpenAI speech API. Text
// longer than the per-request limit is split and the audio concatenated.
type OpenAIProvider struct {
	client oai.Client
	model  oai.SpeechModel
	voice  oai.AudioSpeechNewParamsVoice
}

// OpenAIOption is a functional option for OpenAIProvider.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL string
	model   string
	voice   string
}

// WithBaseURL overrides the default OpenAI API base URL. Primarily used in
// tests to point at a local mock server.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithModel sets the speech model (default tts-1).
func WithModel(model string) OpenAIOption {
	return func(c *openAIConfig) { c.model = model }
}

// WithVoice sets the narration voice (default alloy).
func WithVoice(voice string) OpenAIOption {
	return func(c *openAIConfig) { c.voice = voice }
}

// NewOpenAIProvider constructs an OpenAI-backed narration provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai tts: apiKey must not be empty")
	}

	cfg := &openAIConfig{
		model: string(oai.SpeechModelTTS1),
		voice: "alloy",
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &OpenAIProvider{
		client: oai.NewClient(reqOpts...),
		model:  oai.SpeechModel(cfg.model),
		voice:  oai.AudioSpeechNewParamsVoice(cfg.voice),
	}, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Generate implements Provider. The estimated duration is based on the text
// since the speech endpoint does not report one.
func (p *OpenAIProvider) Generate(ctx context.Context, text string) (Audio, error) {
	var buf bytes.Buffer

	for _, part := range splitForRequest(text, openAIRequestLimit) {
		res, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
			Model: p.model,
			Voice: p.voice,
			Input: part,
		})
		if err != nil {
			return Audio{}, fmt.Errorf("openai tts: %w", err)
		}

		if _, err := io.Copy(&buf, res.Body); err != nil {
			res.Body.Close()
			return Audio{}, fmt.Errorf("openai tts: read audio: %w", err)
		}
		res.Body.Close()
	}

	return Audio{
		Data:     buf.Bytes(),
		Duration: EstimateDuration(text),
	}, nil
}
