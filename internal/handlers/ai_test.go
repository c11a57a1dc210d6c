package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"contentflow/internal/ai"
	"contentflow/internal/middleware"
	"contentflow/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeRelayStore struct {
	conv     *models.Conversation
	history  []models.Message
	appended []models.Message
}

func (f *fakeRelayStore) GetConversation(_ context.Context, id, ownerID uuid.UUID) (*models.Conversation, error) {
	if f.conv != nil && f.conv.ID == id && f.conv.UserID == ownerID {
		return f.conv, nil
	}
	return nil, ai.ErrNotFound
}

func (f *fakeRelayStore) ListMessages(_ context.Context, _ uuid.UUID) ([]models.Message, error) {
	return f.history, nil
}

func (f *fakeRelayStore) AppendMessage(_ context.Context, conversationID uuid.UUID, role, content string) (*models.Message, error) {
	msg := models.Message{ID: uuid.New(), ConversationID: conversationID, Role: role, Content: content}
	f.appended = append(f.appended, msg)
	return &msg, nil
}

func newChatApp(store ai.Store, upstreamURL string) *fiber.App {
	relay := ai.New(ai.Config{
		APIKey:              "test-key",
		APIURL:              upstreamURL,
		DefaultModel:        "test-model",
		MaxCompletionTokens: 4000,
	}, store)
	app := fiber.New()
	app.Post("/api/ai/rewrite-chat", middleware.JWTProtected(testSecret), NewAIHandler(relay).RewriteChat)
	return app
}

func chatRequest(t *testing.T, token, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/rewrite-chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func ownerToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	access, _, err := middleware.GenerateTokens(userID, "owner@example.com", "Owner", "user", testSecret)
	require.NoError(t, err)
	return access
}

func TestRewriteChat_RequiresAuth(t *testing.T) {
	fs := &fakeRelayStore{}
	app := newChatApp(fs, "http://localhost:0")

	resp, err := app.Test(chatRequest(t, "", `{"conversationId":"x","message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, fs.appended)
}

func TestRewriteChat_MissingMessageIsBadRequestWithNoWrites(t *testing.T) {
	conv := &models.Conversation{ID: uuid.New(), UserID: uuid.New()}
	fs := &fakeRelayStore{conv: conv}
	app := newChatApp(fs, "http://localhost:0")

	body := fmt.Sprintf(`{"conversationId":%q}`, conv.ID)
	resp, err := app.Test(chatRequest(t, ownerToken(t, conv.UserID), body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, fs.appended)
}

func TestRewriteChat_ForeignConversationIsNotFound(t *testing.T) {
	conv := &models.Conversation{ID: uuid.New(), UserID: uuid.New()}
	fs := &fakeRelayStore{conv: conv}
	app := newChatApp(fs, "http://localhost:0")

	// Authenticated, but not the owner.
	body := fmt.Sprintf(`{"conversationId":%q,"message":"hi"}`, conv.ID)
	resp, err := app.Test(chatRequest(t, ownerToken(t, uuid.New()), body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Empty(t, fs.appended)
}

func TestRewriteChat_UpstreamRateLimitPassesThrough(t *testing.T) {
	conv := &models.Conversation{ID: uuid.New(), UserID: uuid.New()}
	fs := &fakeRelayStore{conv: conv}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer upstream.Close()
	app := newChatApp(fs, upstream.URL)

	body := fmt.Sprintf(`{"conversationId":%q,"message":"hi"}`, conv.ID)
	resp, err := app.Test(chatRequest(t, ownerToken(t, conv.UserID), body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	payload, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(payload), "Rate limit")
	assert.Empty(t, fs.appended)
}

func TestRewriteChat_StreamsAndPersists(t *testing.T) {
	conv := &models.Conversation{ID: uuid.New(), UserID: uuid.New()}
	fs := &fakeRelayStore{conv: conv}

	frames := []string{
		`{"choices":[{"delta":{"content":"Hi"}}]}`,
		`{"choices":[{"delta":{"content":" there"}}]}`,
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()
	app := newChatApp(fs, upstream.URL)

	body := fmt.Sprintf(`{"conversationId":%q,"message":"hi"}`, conv.ID)
	resp, err := app.Test(chatRequest(t, ownerToken(t, conv.UserID), body), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := string(payload)
	first := strings.Index(out, "data: "+frames[0])
	second := strings.Index(out, "data: "+frames[1])
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.True(t, strings.HasSuffix(out, "data: [DONE]\n\n"))

	require.Len(t, fs.appended, 2)
	assert.Equal(t, openai.ChatMessageRoleUser, fs.appended[0].Role)
	assert.Equal(t, "hi", fs.appended[0].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, fs.appended[1].Role)
	assert.Equal(t, "Hi there", fs.appended[1].Content)
}

func TestBuildInitials(t *testing.T) {
	cases := map[string]string{
		"Jane Doe":          "JD",
		"Jane":              "J",
		"Jane van der Berg": "JV",
		"":                  "?",
	}
	for name, want := range cases {
		assert.Equal(t, want, buildInitials(name), "name %q", name)
	}
}
