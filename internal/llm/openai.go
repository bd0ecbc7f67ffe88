package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter implements ChatAPI, EmbeddingAPI and ModelAPI with go-openai against
// any OpenAI-compatible base URL.
type OpenAIAdapter struct {
	client         *openai.Client
	model          string
	temperature    float32
	embeddingModel openai.EmbeddingModel
	dimensions     int
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	cfg = cfg.withDefaults()
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &OpenAIAdapter{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.Model,
		temperature:    cfg.Temperature,
		embeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		dimensions:     cfg.EmbeddingDimensions,
	}
}

// CreateJSONCompletion requests a chat completion in JSON object mode.
func (a *OpenAIAdapter) CreateJSONCompletion(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// CreateEmbeddings calls the endpoint to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      a.embeddingModel,
		Dimensions: a.dimensions,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// ListModels returns the ids of the models the endpoint serves.
func (a *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	resp, err := a.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
