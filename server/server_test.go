package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poiesic/memvault/ai"
	"github.com/poiesic/memvault/ai/mock"
	"github.com/poiesic/memvault/answer"
	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/envelope"
	"github.com/poiesic/memvault/notes"
	"github.com/poiesic/memvault/search"
	"github.com/poiesic/memvault/storage"
	"github.com/poiesic/memvault/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server    *Server
	repo      storage.NoteRepository
	notes     *notes.Service
	generator *mock.MockGenerator
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	key := make([]byte, envelope.KeySize)
	sealer, err := envelope.NewSealer(key)
	require.NoError(t, err)

	svc, err := notes.NewService(repo, sealer)
	require.NoError(t, err)

	ranker, err := search.NewRanker(mock.NewMockEmbedder())
	require.NoError(t, err)
	gen := mock.NewMockGenerator()
	synth, err := answer.NewSynthesizer(svc, ranker, gen)
	require.NoError(t, err)

	return &testEnv{
		server:    New(svc, synth, opts...),
		repo:      repo,
		notes:     svc,
		generator: gen,
	}
}

func (e *testEnv) do(t *testing.T, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateGetListNote(t *testing.T) {
	env := newTestEnv(t)
	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	w := env.do(t, http.MethodPost, "/api/memories", "alice", NoteRequest{
		Title:      "Renew contract",
		Body:       "Vendor agreement expires",
		Tags:       []string{"work"},
		Priority:   "high",
		SetDueDate: true,
		DueDate:    &due,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[NoteResponse](t, w)
	assert.Equal(t, "Vendor agreement expires", created.Body)
	assert.Equal(t, "high", created.Priority)
	require.NotNil(t, created.DueDate)
	assert.True(t, due.Equal(*created.DueDate))
	assert.Equal(t, "/api/memories/"+created.ID, w.Header().Get("Location"))

	id, err := core.ParseID(created.ID)
	require.NoError(t, err)
	raw, err := env.repo.GetNote(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, envelope.IsCiphertext(raw.Body))

	w = env.do(t, http.MethodGet, "/api/memories/"+created.ID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Vendor agreement expires", decode[NoteResponse](t, w).Body)

	w = env.do(t, http.MethodGet, "/api/memories", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Memories []NoteResponse `json:"memories"`
		Total    int            `json:"total"`
	}](t, w)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, []string{"work"}, list.Memories[0].Tags)

	w = env.do(t, http.MethodGet, "/api/memories/"+created.ID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListFlagsRedactedNotes(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.repo.AddNotes(context.Background(), &core.Note{
		Owner: "alice",
		Title: "Broken",
		Body:  envelope.Prefix + "AAAA",
	})
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/memories", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Memories []NoteResponse `json:"memories"`
	}](t, w)
	require.Len(t, list.Memories, 1)
	assert.True(t, list.Memories[0].Redacted)
	assert.Equal(t, notes.RedactedBody, list.Memories[0].Body)

	path := "/api/memories/" + list.Memories[0].ID
	w = env.do(t, http.MethodPut, path, "alice", NoteRequest{Title: "Renamed", Body: notes.RedactedBody})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestUpdateDeleteAndRemoveTag(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.notes.Create(context.Background(), &core.Note{
		Owner: "alice", Title: "t", Body: "b", Tags: []string{"a", "b c"},
	})
	require.NoError(t, err)
	path := "/api/memories/" + created.Id.String()

	w := env.do(t, http.MethodPut, path, "alice", NoteRequest{Title: "t2", Body: "b2", Tags: created.Tags})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "b2", decode[NoteResponse](t, w).Body)

	w = env.do(t, http.MethodDelete, path+"/tags/b%20c", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"a"}, decode[NoteResponse](t, w).Tags)

	w = env.do(t, http.MethodDelete, path, "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, path, "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, path, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.notes.Create(context.Background(), &core.Note{Owner: "alice", Title: "Buy milk", Body: "Two litres"})
	require.NoError(t, err)
	env.generator.CompleteFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		return " Buy milk [M-1]. ", nil
	}

	w := env.do(t, http.MethodPost, "/api/agent/memories/chat", "alice", ChatRequest{Question: "what should I buy?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Buy milk [M-1].", body["answerText"])
	assert.Len(t, body["citations"], 1)
	assert.Equal(t, []any{}, body["followUps"])
	assert.Contains(t, body, "withheld")
}

func TestStatusMapping(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		owner  string
		body   any
		want   int
	}{
		{"missing owner", http.MethodGet, "/api/memories", "", nil, http.StatusUnauthorized},
		{"blank question", http.MethodPost, "/api/agent/memories/chat", "alice", ChatRequest{Question: "  "}, http.StatusBadRequest},
		{"invalid note", http.MethodPost, "/api/memories", "alice", NoteRequest{Title: "only title"}, http.StatusBadRequest},
		{"unknown priority", http.MethodPost, "/api/memories", "alice", NoteRequest{Title: "t", Body: "b", Priority: "urgent"}, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/memories/abc", "alice", nil, http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/api/memories/999", "alice", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.owner, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/memories", bytes.NewBufferString("{"))
		req.Header.Set(OwnerHeader, "alice")
		w := httptest.NewRecorder()
		env.server.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{answer.ErrInvalidQuestion, http.StatusBadRequest},
		{storage.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: note 7", notes.ErrRedacted), http.StatusConflict},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := statusFor(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}
}

func TestChat_Timeout(t *testing.T) {
	env := newTestEnv(t, WithAskTimeout(10*time.Millisecond))
	_, err := env.notes.Create(context.Background(), &core.Note{Owner: "alice", Title: "t", Body: "b"})
	require.NoError(t, err)
	env.generator.CompleteFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	w := env.do(t, http.MethodPost, "/api/agent/memories/chat", "alice", ChatRequest{Question: "q"})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, WithAuthToken("secret"))

	w := env.do(t, http.MethodGet, "/api/memories", "alice", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/memories", nil)
	req.Header.Set(OwnerHeader, "alice")
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, header := range []string{"Bearer wrong", "Bearer secre", "Bearer secret2", "secret", "Basic secret"} {
		req.Header.Set("Authorization", header)
		rec = httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}
