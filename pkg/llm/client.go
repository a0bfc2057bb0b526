package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultTimeout  = 30 * time.Second
	maxOutputTokens = 1024
	temperature     = 0.7
)

type Client struct {
	oai   *openai.Client
	model string
}

func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("language model API key is not configured")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{
		Timeout: defaultTimeout,
	}
	return &Client{
		oai:   openai.NewClientWithConfig(config),
		model: model,
	}, nil
}

// Complete runs one chat completion with the fixed sampling
// configuration. Input is validated before any network call.
func (c *Client) Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages to send")
	}
	resp, err := c.oai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxOutputTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// FriendlyMessage maps provider error codes to the distinct user-facing
// strings the chat flow returns instead of raising.
func FriendlyMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized:
			return "The assistant is misconfigured. Please contact support."
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests && apiErr.Code == "insufficient_quota":
			return "The assistant has run out of capacity for now. Please try again later."
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return "The assistant is receiving too many requests. Please try again in a moment."
		}
	}
	return "Sorry, I couldn't process your message right now. Please try again."
}
