package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

// HTTPStatusError indicates the webhook endpoint rejected a payload.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// DiscordProvider posts payloads to a Discord webhook URL.
type DiscordProvider struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewDiscordProvider creates a new Discord webhook provider.
func NewDiscordProvider(webhookURL string, client *http.Client, logger *slog.Logger) *DiscordProvider {
	return &DiscordProvider{
		url:    webhookURL,
		client: client,
		logger: logger,
	}
}

// Send posts the payload once. Any non-2xx response is an error.
func (d *DiscordProvider) Send(ctx context.Context, params *discordgo.WebhookParams) error {
	jsonData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	d.logger.Info("Webhook request starting",
		"method", "POST",
		"bytes", len(jsonData))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := d.client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		d.logger.Warn("Webhook request failed",
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			d.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		d.logger.Warn("Webhook returned non-2xx status",
			"status_code", resp.StatusCode,
			"retry_after", resp.Header.Get("Retry-After"),
			"duration_ms", duration.Milliseconds())
		return &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	d.logger.Info("Webhook request completed",
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())
	return nil
}
