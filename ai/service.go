// Package ai provides the optional completion capability used for
// enrichment: booking recommendations and deal summaries. Responses are
// cached by content hash; pricing decisions never depend on this package.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/pkg/cache"
	"github.com/jesposito/walkabout/pkg/logger"
	"github.com/jesposito/walkabout/sources"
)

// Service wraps the completion client with a response cache.
type Service struct {
	client   *openai.Client
	model    string
	cache    *cache.Manager
	cacheTTL time.Duration
}

// NewService creates the service. A missing API key leaves it disabled.
func NewService(cfg config.AIConfig, cacheManager *cache.Manager) *Service {
	s := &Service{
		model:    cfg.Model,
		cache:    cacheManager,
		cacheTTL: cfg.CacheTTL,
	}
	if cfg.APIKey != "" {
		s.client = openai.NewClient(cfg.APIKey)
	}
	return s
}

// IsAvailable reports whether completions are configured.
func (s *Service) IsAvailable() bool { return s.client != nil }

// Complete runs one completion, serving repeats from the cache keyed by
// SHA(prompt, system).
func (s *Service) Complete(ctx context.Context, prompt, system string, maxTokens int) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("ai service not configured")
	}

	key := cache.PromptKey(prompt, system)
	if s.cache != nil {
		var cached string
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: prompt,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, text, s.cacheTTL); err != nil {
			logger.Warn("Could not cache AI response", "error", err)
		}
	}
	return text, nil
}

// Recommend implements sources.Enricher: a short should-they-book-now note
// for a successful price fetch.
func (s *Service) Recommend(ctx context.Context, prices []sources.Price, route string, historicalAvg float64) (string, error) {
	if len(prices) == 0 {
		return "", nil
	}

	lowest := prices[0].Amount
	sum := 0.0
	for _, p := range prices {
		if p.Amount < lowest {
			lowest = p.Amount
		}
		sum += p.Amount
	}
	avg := sum / float64(len(prices))

	historyLine := "No historical data."
	if historicalAvg > 0 {
		historyLine = fmt.Sprintf("Historical average: $%.0f.", historicalAvg)
	}

	prompt := fmt.Sprintf(
		"Flight prices for %s: lowest $%.0f, average of %d options $%.0f. %s\n"+
			"In one or two sentences: is this a good deal, and should they book now or wait?",
		route, lowest, len(prices), avg, historyLine)

	return s.Complete(ctx, prompt, "You are a concise flight-deal analyst.", 150)
}

var _ sources.Enricher = (*Service)(nil)
