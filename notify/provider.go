// Package notify dispatches deal and system alerts across provider variants
// (self-hosted ntfy, ntfy.sh, Discord webhooks) while enforcing the user's
// quiet hours, per-route cooldowns, and per-category toggles.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/jesposito/walkabout/config"
)

// Priority levels map directly onto ntfy's priority header.
type Priority string

const (
	PriorityMin     Priority = "min"
	PriorityLow     Priority = "low"
	PriorityDefault Priority = "default"
	PriorityHigh    Priority = "high"
	PriorityUrgent  Priority = "urgent"
)

// Message is one alert on the wire.
type Message struct {
	Title       string
	Body        string
	Priority    Priority
	Tags        []string
	ActionLabel string
	ActionURL   string
}

// Provider delivers messages to one backend.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// newHTTPClient builds the shared retrying transport for notifier POSTs.
// Delivery is best-effort: a failed send never fails the originating scrape.
func newHTTPClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil
	return client
}

// NtfyProvider posts plain-text messages with ntfy's header protocol. It
// serves both the self-hosted and ntfy.sh variants; only the server URL
// differs.
type NtfyProvider struct {
	serverURL string
	topic     string
	username  string
	password  string
	client    *retryablehttp.Client
}

// NewNtfyProvider creates an ntfy provider.
func NewNtfyProvider(cfg config.NotifyConfig) *NtfyProvider {
	serverURL := cfg.NtfyServerURL
	if serverURL == "" {
		serverURL = "https://ntfy.sh"
	}
	return &NtfyProvider{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		topic:     cfg.NtfyTopic,
		username:  cfg.NtfyUsername,
		password:  cfg.NtfyPassword,
		client:    newHTTPClient(),
	}
}

func (p *NtfyProvider) Name() string { return "ntfy" }

func (p *NtfyProvider) Send(ctx context.Context, msg Message) error {
	if p.topic == "" {
		return fmt.Errorf("ntfy topic not configured")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "POST",
		p.serverURL+"/"+p.topic, []byte(msg.Body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}

	req.Header.Set("Title", msg.Title)
	if msg.Priority != "" {
		req.Header.Set("Priority", string(msg.Priority))
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if msg.ActionURL != "" {
		label := msg.ActionLabel
		if label == "" {
			label = "View"
		}
		req.Header.Set("Actions", fmt.Sprintf("view, %s, %s", label, msg.ActionURL))
	}
	if p.username != "" && p.password != "" {
		req.SetBasicAuth(p.username, p.password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}
	return nil
}

// discordColors maps priorities to embed colors.
var discordColors = map[Priority]int{
	PriorityUrgent:  0xE74C3C,
	PriorityHigh:    0xE67E22,
	PriorityDefault: 0x2ECC71,
	PriorityLow:     0x3498DB,
	PriorityMin:     0x95A5A6,
}

// DiscordProvider posts embeds to a configured webhook.
type DiscordProvider struct {
	webhookURL string
	client     *retryablehttp.Client
}

// NewDiscordProvider creates a Discord webhook provider.
func NewDiscordProvider(cfg config.NotifyConfig) *DiscordProvider {
	return &DiscordProvider{
		webhookURL: cfg.DiscordWebhookURL,
		client:     newHTTPClient(),
	}
}

func (p *DiscordProvider) Name() string { return "discord" }

func (p *DiscordProvider) Send(ctx context.Context, msg Message) error {
	if p.webhookURL == "" {
		return fmt.Errorf("discord webhook not configured")
	}

	embed := map[string]any{
		"title":       msg.Title,
		"description": msg.Body,
		"color":       discordColors[msg.Priority],
	}
	if msg.ActionURL != "" {
		embed["url"] = msg.ActionURL
	}

	payload, err := json.Marshal(map[string]any{
		"content": "",
		"embeds":  []any{embed},
	})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", p.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}
	return nil
}

// NoneProvider swallows everything; the default until the user configures a
// backend.
type NoneProvider struct{}

func (NoneProvider) Name() string { return "none" }

func (NoneProvider) Send(context.Context, Message) error { return nil }

// NewProvider selects the provider for the configured variant.
func NewProvider(cfg config.NotifyConfig) Provider {
	switch cfg.Provider {
	case "ntfy", "ntfy_sh":
		return NewNtfyProvider(cfg)
	case "discord":
		return NewDiscordProvider(cfg)
	default:
		return NoneProvider{}
	}
}
