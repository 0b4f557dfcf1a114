package game

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const commentarySystemPrompt = `You are a chess commentator.
Given the current board position in a string representation, provide a very short comment of the game.
Provide your response in exactly one sentence in the shortest possible way.
Please provide your answer between <answer> and </answer> tags.`

var (
	thinkEndRe = regexp.MustCompile(`(?i)</think\s*>`)
	answerRe   = regexp.MustCompile(`(?is)<answer\s*>(.*?)</answer\s*>`)
)

// Commentator produces one-sentence game commentary from an
// OpenAI-compatible chat endpoint, typically a locally hosted reasoning
// model reached through a tunnel.
type Commentator struct {
	client *openai.Client
	model  string
}

// NewCommentator creates a Commentator. baseURL points at the chat
// completions server root (e.g. "http://localhost:8000/v1"); model names
// the hosted model.
func NewCommentator(baseURL, apiKey, model string) (*Commentator, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("game: commentary server URL is required")
	}
	if model == "" {
		return nil, fmt.Errorf("game: commentary model is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &Commentator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Comment generates a one-sentence comment for the given game record
// (PGN or board text). Falls back to a stock phrase when the model's
// answer cannot be extracted.
func (c *Commentator) Comment(ctx context.Context, position string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: commentarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: position},
		},
		MaxTokens:   2048,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("game: commentary request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("game: commentary response has no choices")
	}

	answer := extractAnswer(resp.Choices[0].Message.Content)
	if answer == "" {
		return "No comment.", nil
	}
	return answer, nil
}

// extractAnswer returns the last <answer> block that occurs after the
// final </think> tag. Reasoning models emit their deliberation first; only
// the tagged answer after it is spoken.
func extractAnswer(text string) string {
	lastThinkEnd := -1
	for _, loc := range thinkEndRe.FindAllStringIndex(text, -1) {
		lastThinkEnd = loc[1]
	}
	if lastThinkEnd == -1 {
		return ""
	}

	matches := answerRe.FindAllStringSubmatch(text[lastThinkEnd:], -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimSpace(matches[len(matches)-1][1])
}
