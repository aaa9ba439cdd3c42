// Package llm adapts the Gemini API to the gateway and chat interfaces.
package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"cryptodash/internal/chat"
)

// Client is the process-wide model client. It is safe for concurrent use.
type Client struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// New creates a client for the Gemini API.
func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger.Info("llm_client_ready", "model", model)

	return &Client{
		client: client,
		model:  model,
		logger: logger.With("component", "llm"),
	}, nil
}

// GenerateJSON asks for a JSON reply constrained by schema and returns the
// raw text.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema map[string]interface{}) (string, error) {
	responseSchema, err := ToSchema(schema)
	if err != nil {
		return "", fmt.Errorf("convert schema: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	c.logger.Debug("llm_generate_completed",
		"model", c.model,
		"bytes", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	if text == "" {
		return "", errors.New("empty model reply")
	}
	return text, nil
}

// NewSession starts a chat with system as its preamble.
func (c *Client) NewSession(ctx context.Context, system string) (chat.Session, error) {
	ch, err := c.client.Chats.Create(ctx, c.model, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return &session{chat: ch}, nil
}

type session struct {
	chat *genai.Chat
}

func (s *session) SendStream(ctx context.Context, text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: text}) {
			if err != nil {
				yield("", err)
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}
