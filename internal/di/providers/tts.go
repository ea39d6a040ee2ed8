package providers

import (
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/writegeist/readalong-server/internal/config"
	"github.com/writegeist/readalong-server/internal/tts"
)

// TTSProviderHandle wraps the configured narration backend. Provider is nil
// when narration is disabled.
type TTSProviderHandle struct {
	Provider tts.Provider
}

// ProvideTTSProvider provides the narration backend selected by config.
func ProvideTTSProvider(i do.Injector) (*TTSProviderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	switch cfg.TTS.Provider {
	case "none":
		log.Info("Narration disabled (no TTS provider)")
		return &TTSProviderHandle{}, nil

	case "openai":
		var opts []tts.OpenAIOption
		if cfg.TTS.BaseURL != "" {
			opts = append(opts, tts.WithBaseURL(cfg.TTS.BaseURL))
		}
		if cfg.TTS.Model != "" {
			opts = append(opts, tts.WithModel(cfg.TTS.Model))
		}
		if cfg.TTS.Voice != "" {
			opts = append(opts, tts.WithVoice(cfg.TTS.Voice))
		}
		provider, err := tts.NewOpenAIProvider(cfg.TTS.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		log.Info("TTS provider configured", "provider", provider.Name())
		return &TTSProviderHandle{Provider: provider}, nil

	case "elevenlabs":
		provider, err := tts.NewElevenLabsProvider(cfg.TTS.APIKey, cfg.TTS.Voice)
		if err != nil {
			return nil, err
		}
		log.Info("TTS provider configured", "provider", provider.Name())
		return &TTSProviderHandle{Provider: provider}, nil

	default:
		return nil, fmt.Errorf("unknown TTS provider: %s", cfg.TTS.Provider)
	}
}
