package backend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aescanero/docforge/internal/config"
	"github.com/aescanero/docforge/pkg/adapters/backend/anthropic"
	"github.com/aescanero/docforge/pkg/domain"
	"github.com/aescanero/docforge/pkg/ports"
)

// BuildRoster creates the backend profiles and their generators from
// configuration. Profiles come back in roster order, which the engine
// treats as preference order.
func BuildRoster(cfg *config.LLMConfig, logger *zap.Logger) ([]*domain.BackendProfile, map[string]ports.Generator, error) {
	switch cfg.Provider {
	case "anthropic":
	default:
		return nil, nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	profiles := make([]*domain.BackendProfile, 0, len(cfg.Models))
	generators := make(map[string]ports.Generator, len(cfg.Models))

	for i, model := range cfg.Models {
		profile := domain.NewBackendProfile(model, cfg.ContextWindows[i], cfg.CostWeights[i])
		client, err := anthropic.NewClient(cfg.APIKey, model, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create client for %s: %w", model, err)
		}
		profiles = append(profiles, profile)
		generators[profile.ID] = client
	}

	return profiles, generators, nil
}
