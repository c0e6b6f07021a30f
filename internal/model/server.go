package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

var ErrEmptyResponse = errors.New("model returned no choices")

// Server talks to an OpenAI-compatible chat completion API. One instance is built at startup and injected
// wherever a model call is needed.
type Server struct {
	client   *openai.Client
	Settings Settings
}

func NewServer(settings Settings, timeout time.Duration) (*Server, error) {
	if settings.APIKey == "" {
		return nil, errors.New("missing API key for model server")
	}
	clientConfig := openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		clientConfig.BaseURL = settings.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &Server{
		client:   openai.NewClientWithConfig(clientConfig),
		Settings: settings,
	}, nil
}

// DescribeImage sends prompt together with one image (an http(s) URL or a data URI) and returns the reply text.
func (s *Server) DescribeImage(ctx context.Context, prompt, imageURL string) (string, error) {
	return s.complete(ctx, s.Settings.VisionModel, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: prompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    imageURL,
					Detail: openai.ImageURLDetailAuto,
				},
			},
		},
	})
}

// Complete sends a text-only prompt.
func (s *Server) Complete(ctx context.Context, prompt string) (string, error) {
	return s.complete(ctx, s.Settings.TextModel, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

func (s *Server) complete(ctx context.Context, modelName string, message openai.ChatCompletionMessage) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     modelName,
		Messages:  []openai.ChatCompletionMessage{message},
		MaxTokens: s.Settings.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
