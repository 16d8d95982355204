package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ipc-assist/internal/core/search"
)

// DefaultTemperature keeps answers close to the retrieved sections.
const DefaultTemperature = 0.3

// Service answers questions with retrieval-augmented generation and records
// the resulting turns on conversation sessions.
type Service struct {
	searcher    *search.Service
	llm         LLMClient
	sessions    *SessionStore
	model       string // for user-facing hints only
	temperature float64
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithChatLogger sets the logger for the Service.
func WithChatLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTemperature overrides the generation temperature.
func WithTemperature(t float64) ServiceOption {
	return func(s *Service) {
		s.temperature = t
	}
}

// NewService creates a new chat Service. model names the configured chat
// model, used only to phrase the "model missing" reply.
func NewService(searcher *search.Service, llm LLMClient, sessions *SessionStore, model string, opts ...ServiceOption) *Service {
	s := &Service{
		searcher:    searcher,
		llm:         llm,
		sessions:    sessions,
		model:       model,
		temperature: DefaultTemperature,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Sessions exposes the session store for the UI layers.
func (s *Service) Sessions() *SessionStore {
	return s.sessions
}

// Ask answers a query in one shot and appends the turn to the session.
// A nil-UUID session skips history entirely (CLI one-shot mode).
func (s *Service) Ask(ctx context.Context, sessionID uuid.UUID, query string) (*Turn, error) {
	return s.ask(ctx, sessionID, query, nil)
}

// AskStream answers a query, forwarding content fragments to onDelta as the
// model produces them. Fallback and error replies arrive as a single delta.
func (s *Service) AskStream(ctx context.Context, sessionID uuid.UUID, query string, onDelta func(delta string) error) (*Turn, error) {
	return s.ask(ctx, sessionID, query, onDelta)
}

func (s *Service) ask(ctx context.Context, sessionID uuid.UUID, query string, onDelta func(string) error) (*Turn, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	s.logger.Info("answering query", "query", query, "session", sessionID)

	retrieval, err := s.searcher.Retrieve(ctx, search.RetrieveParams{Query: query})
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	turn := Turn{
		Query:     query,
		Notices:   retrieval.Notices,
		CreatedAt: time.Now(),
	}

	if len(retrieval.Results) == 0 {
		s.logger.Info("no sections retrieved, returning fallback answer")
		turn.Answer = FallbackAnswer
		return s.finish(sessionID, turn, onDelta)
	}

	for _, r := range retrieval.Results {
		turn.Sources = append(turn.Sources, SourceRef{SectionID: r.SectionID, Score: r.Score})
	}

	req := CompletionRequest{
		Prompt:      BuildPrompt(query, retrieval.Results),
		Temperature: s.temperature,
	}

	var answer string
	if onDelta != nil {
		answer, err = s.llm.StreamCompletion(ctx, req, onDelta)
	} else {
		answer, err = s.llm.GenerateCompletion(ctx, req)
	}
	if err != nil {
		// Operational LLM failures become a helpful reply rather than an
		// error; the user can act on them without reading logs.
		friendly, ok := s.friendlyLLMFailure(err)
		if !ok {
			return nil, fmt.Errorf("failed to generate answer: %w", err)
		}
		s.logger.Error("llm call failed", "error", err)
		turn.Answer = friendly
		turn.Sources = nil
		return s.finish(sessionID, turn, onDelta)
	}

	s.logger.Info("answer generated", "answerLength", len(answer), "sources", len(turn.Sources))

	turn.Answer = answer
	return s.finish(sessionID, turn, nil)
}

// finish appends the turn to its session and, for replies that never went
// through the model stream, emits the answer as a single delta.
func (s *Service) finish(sessionID uuid.UUID, turn Turn, onDelta func(string) error) (*Turn, error) {
	if onDelta != nil {
		if err := onDelta(turn.Answer); err != nil {
			return nil, fmt.Errorf("failed to deliver answer: %w", err)
		}
	}
	if sessionID != uuid.Nil {
		if err := s.sessions.Append(sessionID, turn); err != nil {
			return nil, err
		}
	}
	return &turn, nil
}

func (s *Service) friendlyLLMFailure(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrLLMUnavailable):
		return "Sorry, I cannot reach the language model server right now. " +
			"Please confirm Ollama is running (`ollama serve`) and try again.", true
	case errors.Is(err, ErrModelNotFound):
		return fmt.Sprintf("Sorry, the model %q is not available on the LLM server. "+
			"Please pull it first (`ollama pull %s`).", s.model, s.model), true
	}
	return "", false
}
