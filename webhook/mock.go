package webhook

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// MockProvider logs payloads instead of posting them, for dry runs.
type MockProvider struct {
	logger *slog.Logger
}

// NewMockProvider creates a new mock provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
	}
}

// Send logs the payload instead of sending it.
func (m *MockProvider) Send(_ context.Context, params *discordgo.WebhookParams) error {
	for _, e := range params.Embeds {
		name := ""
		if e.Author != nil {
			name = e.Author.Name
		}
		m.logger.Info("MOCK WEBHOOK",
			"author", name,
			"fields", len(e.Fields),
			"color", e.Color)
	}
	return nil
}
