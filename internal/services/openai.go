package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	defaultModel = "gpt-4o-2024-08-06"
	schemaName   = "playlist_suggestion"
	systemPrompt = "You are a music expert. Generate a list of %d songs based on user preferences, and a fitting playlist name."
)

// OpenAIGenerator implements [Generator] with a single structured-output chat completion.
type OpenAIGenerator struct {
	client       *openai.Client
	model        string
	defaultCount int
	schema       *jsonschema.Definition
	logger       *log.Logger
}

// NewOpenAIGenerator creates a generator from the openai credentials section.
//
// defaultCount is used when [OpenAIGenerator.GenerateCandidates] is called with a count <= 0.
func NewOpenAIGenerator(cfg shared.OpenAIConfig, defaultCount int, logger *log.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api_key", shared.ErrMissingCredentials)
	}

	schema, err := jsonschema.GenerateSchemaForType(models.Suggestion{})
	if err != nil {
		return nil, fmt.Errorf("failed to build response schema: %w", err)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	if defaultCount <= 0 {
		defaultCount = DefaultSongCount
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &OpenAIGenerator{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        model,
		defaultCount: defaultCount,
		schema:       schema,
		logger:       shared.WithLogger(logger, "component", "generator"),
	}, nil
}

// GenerateCandidates asks the model for count songs matching prompt.
//
// The response must validate against the [models.Suggestion] schema and carry a non-blank name and at
// least one complete candidate. Nothing is retried.
func (g *OpenAIGenerator) GenerateCandidates(ctx context.Context, prompt string, count int) (*models.Suggestion, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", shared.ErrInvalidInput)
	}
	if count <= 0 {
		count = g.defaultCount
	}

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, count)},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: g.schema,
				Strict: true,
			},
		},
	}

	g.logger.Debug("requesting candidates", "model", g.model, "count", count)

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrGenerationFailed, describeOpenAIError(err))
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", shared.ErrGenerationFailed)
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("%w: model refused: %s", shared.ErrGenerationFailed, msg.Refusal)
	}

	var suggestion models.Suggestion
	if err := g.schema.Unmarshal(msg.Content, &suggestion); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrGenerationFailed, err)
	}
	if err := suggestion.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrGenerationFailed, err)
	}

	if n := len(suggestion.Candidates); n != count {
		g.logger.Warn("candidate count differs from request", "requested", count, "received", n)
	}

	return &suggestion, nil
}

func describeOpenAIError(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("status %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return err.Error()
}
