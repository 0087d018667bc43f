package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedDocuments embeds a batch of documents in a single upstream call.
	// The returned slice contains embeddings in the same order as the input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a search query. Some models embed queries and
	// documents differently, so callers should not substitute one for the other.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Message is a single turn of a generation request.
type Message struct {
	Role    Role
	Content string
}

// Generator produces text from a conversation.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Complete sends messages to the model once and returns the text of the
	// first choice. Implementations must not retry.
	Complete(ctx context.Context, messages []Message) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the text generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
