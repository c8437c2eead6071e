// Package assistant talks to the generative AI completion service.
package assistant

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"shopsmart/pkg/models"
)

var ErrEmptyCompletion = errors.New("completion returned no choices")

// Image is an inline image payload for vision requests.
type Image struct {
	Data     []byte
	MIMEType string
}

// Completer is the boundary to the AI service. Implementations make exactly
// one request per call and do not retry.
type Completer interface {
	Complete(ctx context.Context, prompt string, image *Image) (string, error)
	Chat(ctx context.Context, system string, history []models.ChatMessage, question string) (string, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
}

type OpenAI struct {
	client      *openai.Client
	model       string
	visionModel string
}

func NewOpenAI(cfg Config) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	vision := cfg.VisionModel
	if vision == "" {
		vision = model
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		visionModel: vision,
	}
}

func (o *OpenAI) Complete(ctx context.Context, prompt string, image *Image) (string, error) {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	model := o.model
	if image == nil {
		msg.Content = prompt
	} else {
		model = o.visionModel
		mime := image.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		msg.MultiContent = []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image.Data)),
				},
			},
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) Chat(ctx context.Context, system string, history []models.ChatMessage, question string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: question})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
