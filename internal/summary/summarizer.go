// Package summary generates natural-language page summaries with the
// Anthropic API. The feature is optional: without an API key the
// summarizer constructs fine and reports itself unavailable.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"pageinsights/internal/insights"
	"pageinsights/internal/model"
)

// ErrUnavailable is returned by Summarize when no API key is configured.
var ErrUnavailable = errors.New("summary generation is not configured")

const systemPrompt = "You are an analyst writing short, factual summaries of company " +
	"pages for an internal dashboard. Use only the data provided. Three to five " +
	"sentences, no bullet points, no speculation."

// Config controls the summarizer. An empty APIKey disables the feature.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = "claude-sonnet-4-20250514"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Summarizer produces page summaries from stored data and engagement
// stats.
type Summarizer struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    *zap.Logger
}

// New constructs a Summarizer. With an empty API key the returned
// instance is valid but disabled.
func New(cfg Config, logger *zap.Logger) *Summarizer {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Summarizer{
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
	if cfg.APIKey == "" {
		logger.Info("summary generation disabled, no API key configured")
		return s
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	s.client = &client
	return s
}

// Available reports whether summary generation is configured.
func (s *Summarizer) Available() bool {
	return s.client != nil
}

// Summarize generates a summary for the page. Returns ErrUnavailable
// when the feature is disabled.
func (s *Summarizer) Summarize(ctx context.Context, page *model.Page, stats *insights.Stats) (string, error) {
	if !s.Available() {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(page, stats))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summary request for page %q: %w", page.PageID, err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("summary request for page %q: empty response", page.PageID)
	}

	s.logger.Debug("summary generated",
		zap.String("page_id", page.PageID),
		zap.Int("length", out.Len()),
		zap.Duration("duration", time.Since(start)),
	)
	return out.String(), nil
}

// buildPrompt flattens page fields and stats into a plain-text block.
// Absent optional fields are omitted rather than rendered as nulls.
func buildPrompt(page *model.Page, stats *insights.Stats) string {
	var b strings.Builder
	b.WriteString("Summarize this company page.\n\n")
	fmt.Fprintf(&b, "Name: %s\n", page.Name)
	if page.Industry != nil {
		fmt.Fprintf(&b, "Industry: %s\n", *page.Industry)
	}
	if page.Description != nil {
		fmt.Fprintf(&b, "Description: %s\n", *page.Description)
	}
	if page.Website != nil {
		fmt.Fprintf(&b, "Website: %s\n", *page.Website)
	}
	if page.Specialities != nil {
		fmt.Fprintf(&b, "Specialities: %s\n", *page.Specialities)
	}
	if page.TotalFollowers != nil {
		fmt.Fprintf(&b, "Followers: %d\n", *page.TotalFollowers)
	}
	if page.HeadCount != nil {
		fmt.Fprintf(&b, "Head count: %d\n", *page.HeadCount)
	}
	if stats != nil {
		fmt.Fprintf(&b, "\nEngagement: %d posts, %d likes, %d comments",
			stats.PostCount, stats.TotalLikes, stats.TotalComments)
		if stats.PostCount > 0 {
			fmt.Fprintf(&b, " (%.1f likes per post)", stats.AvgLikesPerPost)
		}
		b.WriteString("\n")
	}
	return b.String()
}
