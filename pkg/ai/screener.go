// Package ai runs the informational pre-screen over submitted pitches. The
// result is stored alongside the entry for context; it carries zero weight in
// the final score.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ScreenResult is the structured output of one pre-screen pass.
type ScreenResult struct {
	Summary string             `json:"summary"`
	Scores  map[string]float64 `json:"scores"`
	Average float64            `json:"average"`
}

// Config defines configuration options for the OpenAI screener.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIScreener screens pitches using the OpenAI chat completion API.
type OpenAIScreener struct {
	client *openai.Client
	cfg    Config
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIScreener builds a screener using the provided configuration.
func NewOpenAIScreener(cfg Config) (*OpenAIScreener, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	return &OpenAIScreener{
		client: openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/pitcharena/pitcharena-api/pkg/ai/screener"),
		logger: cfg.Logger.With().Str("component", "ai_screener").Logger(),
	}, nil
}

const screenerSystemPrompt = `You review startup pitch submissions for a ` +
	`competition marketplace. Given a pitch title and description, respond with ` +
	`JSON only: {"summary": "<two sentences>", "scores": {"clarity": 0-10, ` +
	`"market": 0-10, "originality": 0-10}}. Be terse and factual.`

// Screen sends one pitch to the model and parses the structured response.
func (s *OpenAIScreener) Screen(parent context.Context, title, description string) (ScreenResult, error) {
	ctx, span := s.tracer.Start(parent, "openai.screen", trace.WithAttributes(
		attribute.String("model", s.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	response, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: screenerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Title: %s\n\nPitch: %s", title, description)},
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("model", s.cfg.Model).Msg("pre-screen request failed")
		return ScreenResult{}, fmt.Errorf("ai screen failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return ScreenResult{}, fmt.Errorf("ai screen returned no choices")
	}

	var result ScreenResult
	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return ScreenResult{}, fmt.Errorf("ai screen returned malformed JSON: %w", err)
	}

	if len(result.Scores) > 0 {
		total := 0.0
		for _, value := range result.Scores {
			total += value
		}
		result.Average = total / float64(len(result.Scores))
	}

	s.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Float64("average", result.Average).
		Msg("pre-screen completed")
	return result, nil
}
