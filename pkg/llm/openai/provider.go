package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"tara-tutor-be/pkg/llm"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// OpenAIProvider adapts an eino chat model to llm.LLMProvider.
type OpenAIProvider struct {
	chatModel   *einoopenai.ChatModel
	Temperature float64
}

var _ llm.LLMProvider = &OpenAIProvider{}

func NewOpenAIProvider(ctx context.Context, apiKey, modelName, baseURL string, temperature float64) (*OpenAIProvider, error) {
	temp := float32(temperature)
	cfg := &einoopenai.ChatModelConfig{
		APIKey:      apiKey,
		Model:       modelName,
		Temperature: &temp,
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cm, err := einoopenai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return &OpenAIProvider{chatModel: cm, Temperature: temperature}, nil
}

func toSchema(history []llm.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case "system":
			out = append(out, schema.SystemMessage(m.Content))
		case "assistant", "model":
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

func modelOptions(defaultTemp float64, opts ...llm.Option) []model.Option {
	options := llm.ApplyOptions(defaultTemp, opts...)
	return []model.Option{model.WithTemperature(float32(options.Temperature))}
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	msg, err := p.chatModel.Generate(ctx, toSchema(history), modelOptions(p.Temperature, opts...)...)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if msg == nil {
		return "", errors.New("openai returned no message")
	}
	return msg.Content, nil
}

func (p *OpenAIProvider) Stream(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.StreamReader, error) {
	reader, err := p.chatModel.Stream(ctx, toSchema(history), modelOptions(p.Temperature, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}
	if reader == nil {
		return nil, errors.New("openai returned nil stream reader")
	}
	return &streamReader{reader: reader}, nil
}

type streamReader struct {
	reader *schema.StreamReader[*schema.Message]
}

func (s *streamReader) Recv() (string, error) {
	for {
		msg, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("openai stream recv: %w", err)
		}
		if msg != nil && msg.Content != "" {
			return msg.Content, nil
		}
	}
}

func (s *streamReader) Close() error {
	s.reader.Close()
	return nil
}
