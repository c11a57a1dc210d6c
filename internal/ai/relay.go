package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"contentflow/internal/models"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

// Store is the conversation persistence the relay consumes. Implementations
// must scope GetConversation to the owner and return ErrNotFound for both
// unknown and foreign conversations.
type Store interface {
	GetConversation(ctx context.Context, id, ownerID uuid.UUID) (*models.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) (*models.Message, error)
}

// Config carries everything the relay needs to reach the upstream provider.
type Config struct {
	APIKey              string
	APIURL              string
	DefaultModel        string
	MaxCompletionTokens int
}

// Request is the inbound relay payload.
type Request struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	Model          string `json:"model,omitempty"`
}

// Relay authenticates nothing itself; the caller identity arrives resolved.
// It loads conversation context, opens the streaming upstream call, forwards
// the delta frames downstream while accumulating the full text, and persists
// the assembled assistant reply once the stream completes.
type Relay struct {
	cfg    Config
	store  Store
	client *http.Client
}

func New(cfg Config, store Store) *Relay {
	return &Relay{
		cfg:   cfg,
		store: store,
		client: &http.Client{
			Timeout: 0, // no timeout for SSE streaming
		},
	}
}

// Session is a single opened upstream stream, ready to be forwarded. It is
// single-use and bound to one relay invocation.
type Session struct {
	stream         *DeltaStream
	store          Store
	conversationID uuid.UUID
}

// Prepare runs every step up to and including opening the upstream call. All
// failures here happen before any stream bytes are sent, so they map to a
// single JSON error response. The new user message is appended only after the
// upstream has accepted the request, and its write is best-effort.
func (r *Relay) Prepare(ctx context.Context, ownerID uuid.UUID, req Request) (*Session, *Error) {
	if req.ConversationID == "" || req.Message == "" {
		return nil, badRequest("Missing conversationId or message")
	}

	convID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		return nil, notFound("Conversation not found")
	}

	conv, err := r.store.GetConversation(ctx, convID, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Conversation not found")
		}
		slog.Error("Conversation fetch failed", "conversation_id", convID, "error", err)
		return nil, internal("Failed to fetch conversation")
	}

	history, err := r.store.ListMessages(ctx, convID)
	if err != nil {
		slog.Error("Messages fetch failed", "conversation_id", convID, "error", err)
		return nil, internal("Failed to fetch messages")
	}

	messages := buildMessages(conv, history, req.Message)

	model := req.Model
	if model == "" {
		model = r.cfg.DefaultModel
	}

	stream, relayErr := r.openUpstream(ctx, model, messages)
	if relayErr != nil {
		return nil, relayErr
	}

	// Best-effort: the reply is not contingent on the history append.
	if _, err := r.store.AppendMessage(ctx, convID, openai.ChatMessageRoleUser, req.Message); err != nil {
		slog.Error("Failed to save user message", "conversation_id", convID, "error", err)
	}

	return &Session{
		stream:         stream,
		store:          r.store,
		conversationID: convID,
	}, nil
}

func (r *Relay) openUpstream(ctx context.Context, model string, messages []openai.ChatCompletionMessage) (*DeltaStream, *Error) {
	body, err := json.Marshal(openai.ChatCompletionRequest{
		Model:               model,
		Messages:            messages,
		Stream:              true,
		MaxCompletionTokens: r.cfg.MaxCompletionTokens,
	})
	if err != nil {
		return nil, internal("Failed to build upstream request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, internal("Failed to build upstream request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		slog.Error("Upstream streaming call failed", "error", err)
		return nil, &Error{Status: http.StatusBadGateway, Message: "AI service unavailable"}
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		slog.Error("Upstream API error", "status", resp.StatusCode, "body", string(errBody))

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, &Error{Status: http.StatusTooManyRequests, Message: "Rate limit exceeded. Please try again later."}
		case http.StatusPaymentRequired:
			return nil, &Error{Status: http.StatusPaymentRequired, Message: "Payment required. Please add funds to your provider account."}
		default:
			return nil, &Error{Status: http.StatusBadGateway, Message: "AI service error", Details: string(errBody)}
		}
	}

	return NewDeltaStream(resp.Body), nil
}

// FlushWriter is the downstream sink; *bufio.Writer satisfies it.
type FlushWriter interface {
	io.Writer
	Flush() error
}

// Run forwards upstream deltas to w one frame at a time, with no buffering
// across frames, while accumulating the full text. When the stream ends
// cleanly, the accumulated reply is persisted exactly once and the terminal
// sentinel is emitted. On cancellation, write failure or a transport fault
// the partial text is discarded and nothing is persisted.
func (s *Session) Run(ctx context.Context, w FlushWriter) error {
	defer s.stream.Close()

	var full strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delta, ok := s.stream.Next()
		if !ok {
			break
		}

		full.WriteString(delta.Content)

		if _, err := fmt.Fprintf(w, "data: %s\n\n", delta.Raw); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if err := s.stream.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if full.Len() > 0 {
		if _, err := s.store.AppendMessage(ctx, s.conversationID, openai.ChatMessageRoleAssistant, full.String()); err != nil {
			slog.Error("Failed to save assistant message", "conversation_id", s.conversationID, "error", err)
		}
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	return w.Flush()
}

func buildMessages(conv *models.Conversation, history []models.Message, userMessage string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(conv),
	})
	for _, m := range history {
		if m.Role == openai.ChatMessageRoleSystem {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})
	return messages
}

func systemPrompt(conv *models.Conversation) string {
	if conv.DocumentContent != "" {
		return fmt.Sprintf("You are a helpful AI writing assistant. The user has uploaded a document titled %q. Here is the document content:\n\n%s\n\nHelp the user rewrite, improve, or work with this content based on their requests.",
			conv.DocumentName, conv.DocumentContent)
	}
	return "You are a helpful AI writing assistant. Help users rewrite and improve their content."
}
