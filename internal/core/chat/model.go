package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrLLMUnavailable marks failures to reach the local LLM server.
	ErrLLMUnavailable = errors.New("llm server unreachable")

	// ErrModelNotFound marks a chat model the LLM server does not have.
	ErrModelNotFound = errors.New("llm model not found")

	// ErrSessionNotFound marks an unknown conversation session.
	ErrSessionNotFound = errors.New("session not found")
)

// CompletionRequest is one generation call to the LLM.
type CompletionRequest struct {
	Prompt      string
	Temperature float64
}

// LLMClient is the generation interface implemented by the OpenAI-compatible
// adapter in front of Ollama.
type LLMClient interface {
	GenerateCompletion(ctx context.Context, req CompletionRequest) (string, error)

	// StreamCompletion invokes onDelta for each content fragment and returns
	// the full accumulated answer.
	StreamCompletion(ctx context.Context, req CompletionRequest, onDelta func(delta string) error) (string, error)
}

// SourceRef points at an IPC section that grounded an answer.
type SourceRef struct {
	SectionID string  `json:"sectionId"`
	Score     float64 `json:"score"`
}

// Turn is one exchange of a conversation: the user query and the generated
// answer. Turns live only in session memory and are never persisted.
type Turn struct {
	Query     string      `json:"query"`
	Answer    string      `json:"answer"`
	Sources   []SourceRef `json:"sources,omitempty"`
	Notices   []string    `json:"notices,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Session is a conversation identified by ID, holding its turns in order.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"createdAt"`
}
