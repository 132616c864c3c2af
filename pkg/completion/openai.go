package completion

import (
	"context"
	"strings"

	"personasim/pkg/prompt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

func toChatMessages(msgs []prompt.Message) []openai.ChatCompletionMessageParamUnion {
	chatMessages := make([]openai.ChatCompletionMessageParamUnion, len(msgs))
	for i, msg := range msgs {
		switch msg.Role {
		case "system":
			chatMessages[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			chatMessages[i] = openai.AssistantMessage(msg.Content)
		default:
			chatMessages[i] = openai.UserMessage(msg.Content)
		}
	}
	return chatMessages
}

func (c *Client) chatParams(msgs []prompt.Message, model string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    toChatMessages(msgs),
		Temperature: openai.Float(c.temperature),
		TopP:        openai.Float(c.topP),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	}
}

func (c *Client) completeOpenAI(ctx context.Context, msgs []prompt.Message, key, model string) (string, error) {
	client := c.getOpenAIClient(key)

	resp, err := client.Chat.Completions.New(ctx, c.chatParams(msgs, model))
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyReply
	}
	return content, nil
}

func (c *Client) streamOpenAI(ctx context.Context, msgs []prompt.Message, key, model string, onToken func(string)) error {
	client := c.getOpenAIClient(key)

	stream := client.Chat.Completions.NewStreaming(ctx, c.chatParams(msgs, model))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			onToken(delta)
		}
	}

	return stream.Err()
}
