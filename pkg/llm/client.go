// Package llm defines the language model contract consumed by analyzers, along with a
// command-line backed client and a retrying decorator.
package llm

import (
	"context"
	"strings"
)

// Role identifies who authored a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single request
type Options struct {
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Usage reports token accounting when the provider supplies it
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Response is the provider-neutral completion result
type Response struct {
	Content      string `json:"content"`
	Usage        *Usage `json:"usage,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Client makes completion requests. Failures are returned as errors with a
// human-readable message; callers never see raw provider responses.
type Client interface {
	MakeRequest(ctx context.Context, messages []Message, opts Options) (*Response, error)
}

// ClientFunc adapts a function to Client
type ClientFunc func(ctx context.Context, messages []Message, opts Options) (*Response, error)

func (f ClientFunc) MakeRequest(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	return f(ctx, messages, opts)
}

// RenderPrompt flattens a conversation into a single prompt for
// providers that take one block of text
func RenderPrompt(messages []Message) string {
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch m.Role {
		case RoleSystem:
			sb.WriteString("Instructions:\n")
		case RoleAssistant:
			sb.WriteString("Assistant:\n")
		}
		sb.WriteString(strings.TrimSpace(m.Content))
	}
	return sb.String()
}
