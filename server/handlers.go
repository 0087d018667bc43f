package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/memvault/core"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return false
	}
	return true
}

func noteID(w http.ResponseWriter, r *http.Request) (core.ID, bool) {
	id, err := core.ParseID(chi.URLParam(r, "id"))
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return 0, false
	}
	return id, true
}

// handleChat handles POST /api/agent/memories/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	if s.askTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.askTimeout)
		defer cancel()
	}

	ans, err := s.asker.Ask(ctx, ownerFrom(ctx), req.Question, req.Filters)
	if err != nil {
		s.writeError(w, r, "ask", err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

// handleListNotes handles GET /api/memories.
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.notes.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, "list notes", err)
		return
	}

	items := make([]NoteResponse, len(notes))
	for i, n := range notes {
		items[i] = toResponse(n)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"memories": items,
		"total":    len(items),
	})
}

// handleCreateNote handles POST /api/memories.
func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := req.toNote(ownerFrom(r.Context()), 0)
	if err != nil {
		s.writeError(w, r, "create note", err)
		return
	}

	created, err := s.notes.Create(r.Context(), note)
	if err != nil {
		s.writeError(w, r, "create note", err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/memories/%s", url.PathEscape(created.Id.String())))
	writeJSON(w, http.StatusCreated, toResponse(created))
}

// handleGetNote handles GET /api/memories/{id}.
func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	note, err := s.notes.Get(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(note))
}

// handleUpdateNote handles PUT /api/memories/{id}.
func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := req.toNote(ownerFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, "update note", err)
		return
	}

	updated, err := s.notes.Update(r.Context(), note)
	if err != nil {
		s.writeError(w, r, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(updated))
}

// handleDeleteNote handles DELETE /api/memories/{id}.
func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	if err := s.notes.Delete(r.Context(), ownerFrom(r.Context()), id); err != nil {
		s.writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveTag handles DELETE /api/memories/{id}/tags/{tag}.
func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil || tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid tag"))
		return
	}

	note, err := s.notes.RemoveTag(r.Context(), ownerFrom(r.Context()), id, tag)
	if err != nil {
		s.writeError(w, r, "remove tag", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(note))
}
