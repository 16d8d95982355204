package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ipc-assist/internal/core/chat"
	"ipc-assist/internal/interface/http/response"
)

// ChatService is the slice of the chat core the handlers need.
type ChatService interface {
	Ask(ctx context.Context, sessionID uuid.UUID, query string) (*chat.Turn, error)
	AskStream(ctx context.Context, sessionID uuid.UUID, query string, onDelta func(delta string) error) (*chat.Turn, error)
	Sessions() *chat.SessionStore
}

type ChatHandler struct {
	chatService ChatService
}

func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type SendMessageRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query" binding:"required"`
	Stream    bool   `json:"stream"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
}

type TurnResponse struct {
	Query   string           `json:"query"`
	Answer  string           `json:"answer"`
	Sources []chat.SourceRef `json:"sources,omitempty"`
	Notices []string         `json:"notices,omitempty"`
}

// CreateSession opens a new conversation and returns its identifier.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	session := h.chatService.Sessions().Create()
	response.OK(c, SessionResponse{
		SessionID: session.ID.String(),
		CreatedAt: session.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetHistory returns the recorded turns of a session.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	turns, err := h.chatService.Sessions().History(sessionID)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to load history")
		return
	}

	resp := make([]TurnResponse, 0, len(turns))
	for _, t := range turns {
		resp = append(resp, turnResponse(&t))
	}
	response.OK(c, resp)
}

// SendMessage answers a query. With stream=false the full turn is returned
// as JSON; with stream=true the answer is delivered as server-sent events.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	sessionID := uuid.Nil
	if req.SessionID != "" {
		var err error
		sessionID, err = uuid.Parse(req.SessionID)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
			return
		}
	}

	if req.Stream {
		h.streamMessage(c, sessionID, req.Query)
		return
	}

	turn, err := h.chatService.Ask(c.Request.Context(), sessionID, req.Query)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to answer query")
		return
	}

	response.OK(c, turnResponse(turn))
}

func (h *ChatHandler) streamMessage(c *gin.Context, sessionID uuid.UUID, query string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	turn, err := h.chatService.AskStream(c.Request.Context(), sessionID, query, func(delta string) error {
		return writeEvent(c, flusher, "delta", gin.H{"text": delta})
	})
	if err != nil {
		// headers are already out, so the error travels in-band
		_ = writeEvent(c, flusher, "error", gin.H{"message": err.Error()})
		return
	}

	_ = writeEvent(c, flusher, "done", turnResponse(turn))
}

// writeEvent emits one SSE frame with a JSON payload. JSON never contains a
// raw newline, so the frame cannot be broken by model output.
func writeEvent(c *gin.Context, flusher http.Flusher, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := c.Writer.Write([]byte("event: " + event + "\ndata: " + string(data) + "\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func turnResponse(t *chat.Turn) TurnResponse {
	return TurnResponse{
		Query:   t.Query,
		Answer:  t.Answer,
		Sources: t.Sources,
		Notices: t.Notices,
	}
}
