package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"matchchat-backend/internal/config"
	"matchchat-backend/internal/middleware"
	"matchchat-backend/internal/push"
	"matchchat-backend/internal/repository"
	"matchchat-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router *chi.Mux
	tokens *services.TokenService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := repository.NewMemory()
	tokens := services.NewTokenService("test-secret")
	hub := services.NewWSHub(nil)
	budget := services.NewMemoryBudget(3)

	matchService := services.NewMatchService(store.Matches(), store.Conversations(), store.Swipes(), hub, push.Noop{}, nil)
	swipeService := services.NewSwipeService(
		store.Swipes(), store.Matches(), store.Blocks(),
		budget, matchService, services.NewStaticEntitlements(nil), nil,
	)
	chatService := services.NewChatService(
		store.Conversations(), store.Messages(), store.Blocks(),
		hub, push.Noop{},
		config.ChatConfig{EditWindowHours: 48, MaxPinnedMessages: 5}, nil,
	)
	blockService := services.NewBlockService(store.Blocks(), matchService)

	swipeHandler := NewSwipeHandler(swipeService)
	matchHandler := NewMatchHandler(matchService)
	chatHandler := NewChatHandler(chatService)
	blockHandler := NewBlockHandler(blockService)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(tokens))
		r.Post("/swipes", swipeHandler.RecordSwipe)
		r.Post("/swipes/undo", swipeHandler.UndoSwipe)
		r.Get("/matches", matchHandler.ListMatches)
		r.Delete("/matches/{match_id}", matchHandler.Unmatch)
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", chatHandler.ListConversations)
			r.Post("/{conversation_id}/messages", chatHandler.SendMessage)
			r.Put("/{conversation_id}/mute", chatHandler.MuteConversation)
		})
		r.Post("/blocks/{user_id}", blockHandler.BlockUser)
	})

	return &testAPI{router: r, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		token, err := a.tokens.GenerateToken(userID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAPIRequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/swipes", "", map[string]string{
		"target_id": "bob", "action": "like",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRecordSwipe(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/swipes", "alice", map[string]string{
		"target_id": "bob", "action": "like",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestAPISelfSwipe(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/swipes", "alice", map[string]string{
		"target_id": "alice", "action": "like",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_TARGET", resp.Error.Code)
}

func TestAPISuperLikeQuotaStatus(t *testing.T) {
	api := newTestAPI(t)

	for _, target := range []string{"bob", "carol", "dave"} {
		rec := api.do(t, http.MethodPost, "/api/v1/swipes", "alice", map[string]string{
			"target_id": target, "action": "super_like",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := api.do(t, http.MethodPost, "/api/v1/swipes", "alice", map[string]string{
		"target_id": "erin", "action": "super_like",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAPIUndoNotEntitled(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/swipes/undo", "alice", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPIMatchFlow(t *testing.T) {
	api := newTestAPI(t)

	api.do(t, http.MethodPost, "/api/v1/swipes", "alice", map[string]string{
		"target_id": "bob", "action": "like",
	})
	rec := api.do(t, http.MethodPost, "/api/v1/swipes", "bob", map[string]string{
		"target_id": "alice", "action": "like",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.NotNil(t, data["match"], "mutual like returns the match inline")

	// Both sides see it.
	rec = api.do(t, http.MethodGet, "/api/v1/matches", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeResponse(t, rec)
	matches, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, matches, 1)
}

func TestAPISendMessage(t *testing.T) {
	api := newTestAPI(t)

	api.do(t, http.MethodPost, "/api/v1/swipes", "alice", map[string]string{
		"target_id": "bob", "action": "like",
	})
	rec := api.do(t, http.MethodPost, "/api/v1/swipes", "bob", map[string]string{
		"target_id": "alice", "action": "like",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	match := resp.Data.(map[string]any)["match"].(map[string]any)
	convID := match["conversation_id"].(string)

	rec = api.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/messages", "alice", map[string]any{
		"type":    "text",
		"payload": map[string]string{"content": "hello"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// An outsider is rejected with a 403: the conversation exists but they
	// are not in it.
	rec = api.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/messages", "mallory", map[string]any{
		"type":    "text",
		"payload": map[string]string{"content": "hi there"},
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	resp = decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)
}

func TestAPIMuteDurationHours(t *testing.T) {
	api := newTestAPI(t)

	api.do(t, http.MethodPost, "/api/v1/swipes", "alice", map[string]string{
		"target_id": "bob", "action": "like",
	})
	rec := api.do(t, http.MethodPost, "/api/v1/swipes", "bob", map[string]string{
		"target_id": "alice", "action": "like",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	match := resp.Data.(map[string]any)["match"].(map[string]any)
	convID := match["conversation_id"].(string)

	rec = api.do(t, http.MethodPut, "/api/v1/conversations/"+convID+"/mute", "alice", map[string]any{
		"duration_hours": 8,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// A timed mute carries an expiry; only an omitted duration is
	// indefinite.
	resp = decodeResponse(t, rec)
	conv := resp.Data.(map[string]any)
	mute := conv["mute_a"].(map[string]any)
	assert.Equal(t, true, mute["muted"])
	assert.NotNil(t, mute["muted_until"], "duration_hours=8 must set an expiry")
}

func TestAPIBlockedPairCannotSwipe(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/blocks/bob", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/swipes", "bob", map[string]string{
		"target_id": "alice", "action": "like",
	})
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_TARGET", resp.Error.Code)
}
