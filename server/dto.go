package server

import (
	"fmt"
	"time"

	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/search"
)

// NoteResponse is the wire form of a note.
type NoteResponse struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Tags       []string   `json:"tags"`
	Priority   string     `json:"priority"`
	SetDueDate bool       `json:"setDueDate"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	Complete   bool       `json:"complete"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Redacted   bool       `json:"redacted,omitempty"`
}

func toResponse(n *core.Note) NoteResponse {
	resp := NoteResponse{
		ID:         n.Id.String(),
		Title:      n.Title,
		Body:       n.Body,
		Tags:       n.Tags,
		Priority:   n.Priority.Label(),
		SetDueDate: n.SetDueDate,
		Complete:   n.Complete,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
		Redacted:   n.Redacted,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if !n.DueDate.IsZero() {
		due := n.DueDate
		resp.DueDate = &due
	}
	return resp
}

// NoteRequest is the body of create and update calls.
type NoteRequest struct {
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Tags       []string   `json:"tags"`
	Priority   string     `json:"priority"`
	SetDueDate bool       `json:"setDueDate"`
	DueDate    *time.Time `json:"dueDate"`
	Complete   bool       `json:"complete"`
}

func (req *NoteRequest) toNote(owner core.OwnerID, id core.ID) (*core.Note, error) {
	n := &core.Note{
		Id:         id,
		Owner:      owner,
		Title:      req.Title,
		Body:       req.Body,
		Tags:       req.Tags,
		SetDueDate: req.SetDueDate,
		Complete:   req.Complete,
	}
	if req.Priority != "" {
		p, ok := core.ParsePriority(req.Priority)
		if !ok {
			return nil, fmt.Errorf("%w: %w %q", core.ErrInvalidNote, core.ErrInvalidPriority, req.Priority)
		}
		n.Priority = p
	}
	if req.DueDate != nil {
		n.DueDate = req.DueDate.UTC()
	}
	return n, nil
}

// ChatRequest is the body of a question.
type ChatRequest struct {
	Question string          `json:"question"`
	Filters  *search.Filters `json:"filters,omitempty"`
}
