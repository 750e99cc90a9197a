package classifier

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/uhhbyss/PA-AIPJC/internal/config"
)

// New builds the classifier selected by cfg.Backend.
//
// For the llm backend a missing remote API key is not an error: remote
// calls then fall back to the local model.
func New(ctx context.Context, cfg config.ClassifierConfig, logger *zap.Logger) (Classifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case "service":
		return NewService(cfg.ServiceURL, &http.Client{}, logger), nil

	case "llm":
		local, err := NewOpenAICompleter(cfg.LocalBaseURL, cfg.LocalModel, cfg.LocalAPIKey, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}

		var remote Completer
		if cfg.RemoteAPIKey != "" {
			switch cfg.RemoteProvider {
			case "anthropic":
				remote, err = NewAnthropicCompleter(cfg.RemoteAPIKey, cfg.RemoteModel, cfg.MaxTokens)
			case "gemini":
				remote, err = NewGeminiCompleter(ctx, cfg.RemoteAPIKey, cfg.RemoteModel, cfg.MaxTokens)
			default:
				err = fmt.Errorf("unknown remote provider %q", cfg.RemoteProvider)
			}
			if err != nil {
				return nil, fmt.Errorf("classifier: remote: %w", err)
			}
		}
		return NewLLM(local, remote, logger), nil

	default:
		return nil, fmt.Errorf("classifier: unknown backend %q", cfg.Backend)
	}
}
