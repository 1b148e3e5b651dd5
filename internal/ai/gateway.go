package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/petermazzocco/tile-studio-api/models"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// MaxHistory is how many trailing turns of a conversation are forwarded.
	MaxHistory = 20

	chatMaxTokens   = 600
	chatTemperature = 0.7

	tileTemplate = "A seamless, tileable tile texture of %s. Photorealistic, top view, evenly lit, 4K resolution, highly detailed surface."
)

// DefaultPersona is sent as the system turn when the caller does not supply one.
const DefaultPersona = "คุณคือผู้เชี่ยวชาญด้านกระเบื้องและการออกแบบตกแต่งภายใน " +
	"ให้คำแนะนำเรื่องการเลือกกระเบื้อง ขนาด สี ลวดลาย และการจัดวางให้เข้ากับห้อง " +
	"ตอบเป็นภาษาไทยอย่างสุภาพ กระชับ และนำไปใช้ได้จริง"

// FallbackReply is returned to the chat UI when the model cannot be reached.
const FallbackReply = "ขออภัย เกิดข้อผิดพลาด กรุณาลองใหม่อีกครั้ง"

type Config struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	ImageModel string
	Timeout    time.Duration
}

// Gateway talks to an OpenAI-compatible API for tile images and chat replies.
type Gateway struct {
	client     *openai.Client
	chatModel  string
	imageModel string
}

func NewGateway(cfg Config) (*Gateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai api key required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4oMini
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		oc.BaseURL = base
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Gateway{
		client:     openai.NewClientWithConfig(oc),
		chatModel:  cfg.ChatModel,
		imageModel: cfg.ImageModel,
	}, nil
}

// TilePrompt wraps a user description in the fixed texture template.
func TilePrompt(prompt string) string {
	return fmt.Sprintf(tileTemplate, strings.TrimSpace(prompt))
}

// GenerateTile returns the base64-encoded PNG produced for prompt.
func (g *Gateway) GenerateTile(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is required: %w", ErrInvalidArgument)
	}
	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         TilePrompt(prompt),
		Model:          g.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", &ExternalServiceError{Op: "generate tile", Err: err}
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", &ExternalServiceError{Op: "generate tile", Err: errors.New("empty image response")}
	}
	return resp.Data[0].B64JSON, nil
}

// Chat sends the trailing MaxHistory turns, preceded by a system turn, and
// returns the assistant reply.
func (g *Gateway) Chat(ctx context.Context, history []models.ChatTurn, system string) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("messages are required: %w", ErrInvalidArgument)
	}
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.chatModel,
		Messages:    BuildMessages(history, system),
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	})
	if err != nil {
		return "", &ExternalServiceError{Op: "chat", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ExternalServiceError{Op: "chat", Err: errors.New("empty completion")}
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", &ExternalServiceError{Op: "chat", Err: errors.New("empty completion")}
	}
	return reply, nil
}

// BuildMessages prepends the system turn to the most recent MaxHistory turns.
func BuildMessages(history []models.ChatTurn, system string) []openai.ChatCompletionMessage {
	if strings.TrimSpace(system) == "" {
		system = DefaultPersona
	}
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, t := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}
	return msgs
}
