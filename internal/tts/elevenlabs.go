package tts

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io/v1"
	elevenLabsDefaultVoice = "21m00Tcm4TlvDq8ikWAM"
	elevenLabsModel        = "eleven_monolingual_v1"
)

// Ensure ElevenLabsProvider implements the Provider interface.
var _ Provider = (*ElevenLabsProvider)(nil)

// ElevenLabsProvider generates narration through the ElevenLabs
// text-to-speech API.
type ElevenLabsProvider struct {
	apiKey  string
	voiceID string
	baseURL string
	client  *http.Client
}

// NewElevenLabsProvider constructs an ElevenLabs-backed narration provider.
// An empty voiceID selects the default voice.
func NewElevenLabsProvider(apiKey, voiceID string) (*ElevenLabsProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs tts: apiKey must not be empty")
	}
	if voiceID == "" {
		voiceID = elevenLabsDefaultVoice
	}
	return &ElevenLabsProvider{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Name implements Provider.
func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings elevenLabsSettings `json:"voice_settings"`
}

type elevenLabsSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Generate implements Provider.
func (p *ElevenLabsProvider) Generate(ctx context.Context, text string) (Audio, error) {
	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: elevenLabsModel,
		VoiceSettings: elevenLabsSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	})
	if err != nil {
		return Audio{}, fmt.Errorf("elevenlabs tts: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", p.baseURL, p.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Audio{}, fmt.Errorf("elevenlabs tts: build request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Audio{}, fmt.Errorf("elevenlabs tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Audio{}, fmt.Errorf("elevenlabs tts: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, fmt.Errorf("elevenlabs tts: read audio: %w", err)
	}

	return Audio{
		Data:     data,
		Duration: EstimateDuration(text),
	}, nil
}
