// Package llm defines the model-runtime-agnostic interface the turn loop
// drives; internal/llm/ollama provides the one concrete implementation
// named in SPEC_FULL.md (Ollama local-model runtime).
package llm

import "context"

// Message is one chat-history entry sent to the model.
type Message struct {
	Role       string // "system", "user", "assistant", "tool"
	Content    string
	ToolCallID string
	Name       string
	ToolCalls  []ToolCall
}

// ToolCall is a model-proposed function invocation.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// ToolDef describes one callable tool, passed to the model so it can
// propose calls against it.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON schema
}

// Request is one turn's generation request.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolDef
	Temperature float64
}

// Response is a completed (non-streaming) generation.
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	ModelUsed  string
	TokensUsed int
}

// StreamChunk is one incremental piece of a streaming generation: either a
// text delta, a tool-call delta, or the terminal chunk carrying Done+the
// final Response.
type StreamChunk struct {
	TextDelta     string
	ToolCallDelta *ToolCallDelta
	Done          bool
	Final         *Response
	Err           error
}

// ToolCallDelta carries one incremental fragment of a streamed tool call.
// Index is the call's position within the chunk that carried it. The turn
// loop does not merge deltas by Index: it appends one call per delta and
// replaces that list with Final.ToolCalls when the terminal chunk arrives.
type ToolCallDelta struct {
	Index         int
	ID            string
	Name          string
	ArgumentsJSON string // appended fragment of the arguments JSON
}

// Client is the model-runtime-agnostic interface the turn loop depends on.
type Client interface {
	// Generate performs one non-streaming chat completion.
	Generate(ctx context.Context, req Request) (*Response, error)

	// GenerateStream performs one streaming chat completion, sending
	// incremental chunks on ch. ch is closed by the implementation when the
	// stream ends (on success, error, or context cancellation).
	GenerateStream(ctx context.Context, req Request, ch chan<- StreamChunk) error

	// Reachable probes whether the runtime itself is up (e.g. a bare GET to
	// the server root), independent of any particular model.
	Reachable(ctx context.Context) error

	// HasModel probes whether the named model is present on the runtime.
	HasModel(ctx context.Context, model string) (bool, error)
}
