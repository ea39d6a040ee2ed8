package metadata

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/writegeist/readalong-server/internal/domain"
)

// excerptLimit bounds how much chapter text goes into the prompt. Entities
// repeat throughout a chapter, so the opening is representative.
const excerptLimit = 8000

// Ensure OpenAIExtractor implements the Extractor interface.
var _ Extractor = (*OpenAIExtractor)(nil)

// OpenAIExtractor analyzes chapters through the OpenAI chat API with a
// JSON-object response format.
type OpenAIExtractor struct {
	client oai.Client
	model  shared.ChatModel
}

// OpenAIOption is a functional option for OpenAIExtractor.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL string
	model   string
}

// WithBaseURL overrides the default OpenAI API base URL. Primarily used in
// tests to point at a local mock server.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithModel sets the chat model (default gpt-4o-mini).
func WithModel(model string) OpenAIOption {
	return func(c *openAIConfig) { c.model = model }
}

// NewOpenAIExtractor constructs an OpenAI-backed metadata extractor.
func NewOpenAIExtractor(apiKey string, opts ...OpenAIOption) (*OpenAIExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai metadata: apiKey must not be empty")
	}

	cfg := &openAIConfig{model: string(shared.ChatModelGPT4oMini)}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &OpenAIExtractor{
		client: oai.NewClient(reqOpts...),
		model:  shared.ChatModel(cfg.model),
	}, nil
}

// Name implements Extractor.
func (e *OpenAIExtractor) Name() string { return "openai" }

const systemPrompt = "You analyze fiction manuscripts. " +
	"Answer with a single JSON object and nothing else."

// Extract implements Extractor. One chat completion covers every field; the
// reading statistics are computed locally rather than asked of the model.
func (e *OpenAIExtractor) Extract(ctx context.Context, title, text string) (*domain.ChapterMetadata, error) {
	prompt := fmt.Sprintf(`Analyze this chapter and return a JSON object with these keys:
- "characters": named characters (proper names of people only, not titles or descriptions)
- "locations": named places (cities, buildings, rooms, geographic features)
- "pov": one of "first person", "second person", "third person limited", "third person omniscient"
- "sentiment": "positive", "negative", or "neutral"
- "tone": a brief description

Chapter title: %s

Text:
%s`, title, excerpt(text, excerptLimit))

	res, err := e.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(prompt),
		},
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: oai.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("openai metadata: %w", err)
	}
	if len(res.Choices) == 0 {
		return nil, fmt.Errorf("openai metadata: empty choices in response")
	}

	m, err := parseAnalysis(res.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("openai metadata: %w", err)
	}

	ReadingStats(text, m)
	return m, nil
}

// parseAnalysis decodes the model's JSON answer. Models occasionally wrap
// the object in a code fence despite the response format, so stray bytes
// around the outermost braces are stripped first.
func parseAnalysis(content string) (*domain.ChapterMetadata, error) {
	raw := []byte(content)
	if start := bytes.IndexByte(raw, '{'); start >= 0 {
		if end := bytes.LastIndexByte(raw, '}'); end > start {
			raw = raw[start : end+1]
		}
	}

	var parsed struct {
		Characters []string `json:"characters"`
		Locations  []string `json:"locations"`
		POV        string   `json:"pov"`
		Sentiment  string   `json:"sentiment"`
		Tone       string   `json:"tone"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}

	return &domain.ChapterMetadata{
		Characters: parsed.Characters,
		Locations:  parsed.Locations,
		POV:        parsed.POV,
		Sentiment:  parsed.Sentiment,
		Tone:       parsed.Tone,
	}, nil
}
