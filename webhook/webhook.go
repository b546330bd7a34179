// Package webhook posts recruitment announcements to a Discord webhook.
package webhook

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/kibsywow/recruit-bot/pkg/lfg"
)

// Provider delivers a webhook payload.
type Provider interface {
	// Send posts the payload. A nil error means the endpoint accepted it.
	Send(ctx context.Context, params *discordgo.WebhookParams) error
}

// Sender formats records and hands them to a provider.
type Sender struct {
	provider Provider
	logger   *slog.Logger
}

// New creates a new sender with the given provider.
func New(provider Provider, logger *slog.Logger) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
	}
}

// Notify announces a single record.
func (s *Sender) Notify(ctx context.Context, r *lfg.Record) error {
	embed := Embed(r)

	s.logger.Info("Sending announcement",
		"listing", r.Listing.ID(),
		"author", embed.Author.Name)

	return s.provider.Send(ctx, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
}
