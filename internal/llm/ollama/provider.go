// Package ollama adapts the teacher's OpenAI-compatible HTTP provider
// pattern to Ollama's native NDJSON-streaming /api/chat endpoint — the
// concrete local-model runtime SPEC_FULL.md concretizes the spec's
// runtime-agnostic "local LLM" language into.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ouro-run/ouro/internal/llm"
)

// Provider is a Go-native Ollama HTTP client.
type Provider struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// New creates an Ollama provider pointed at host (e.g. "http://localhost:11434").
func New(host string, logger *zap.Logger) *Provider {
	baseURL := strings.TrimRight(host, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 300 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &Provider{
		baseURL: baseURL,
		client:  &http.Client{Transport: transport},
		logger:  logger.With(zap.String("provider", "ollama")),
	}
}

var _ llm.Client = (*Provider)(nil)

// Reachable probes the server root, per spec §1's startup check.
func (p *Provider) Reachable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build reachability request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable at %s: %w", p.baseURL, err)
	}
	defer resp.Body.Close()
	return nil
}

type showRequest struct {
	Model string `json:"model"`
}

// HasModel probes model presence via POST /api/show, per spec §1's
// startup check.
func (p *Provider) HasModel(ctx context.Context, model string) (bool, error) {
	body, err := json.Marshal(showRequest{Model: model})
	if err != nil {
		return false, fmt.Errorf("marshal show request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/show", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build show request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("ollama show error %d: %s", resp.StatusCode, string(respBody))
	}
	return true, nil
}

// wireMessage is the /api/chat wire format for one message.
type wireMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []wireToolCall  `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	Function wireToolCallFn `json:"function"`
}

type wireToolCallFn struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireToolSpec `json:"function"`
}

type wireToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Tools    []wireTool    `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

// chatChunk is one NDJSON line of /api/chat's streaming response.
type chatChunk struct {
	Model     string      `json:"model"`
	Message   wireMessage `json:"message"`
	Done      bool        `json:"done"`
	DoneReason string     `json:"done_reason,omitempty"`
	EvalCount int         `json:"eval_count,omitempty"`
}

func (p *Provider) buildRequest(req llm.Request, stream bool) chatRequest {
	out := chatRequest{
		Model:   req.Model,
		Stream:  stream,
		Options: chatOptions{Temperature: req.Temperature},
	}
	for _, m := range req.Messages {
		wm := wireMessage{Role: m.Role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				Function: wireToolCallFn{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out.Messages = append(out.Messages, wm)
	}
	for _, td := range req.Tools {
		out.Tools = append(out.Tools, wireTool{
			Type: "function",
			Function: wireToolSpec{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.Parameters,
			},
		})
	}
	return out
}

// Generate performs one non-streaming completion by draining the NDJSON
// stream with stream:false, per Ollama's documented single-object
// response shape in that mode.
func (p *Provider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	wireReq := p.buildRequest(req, false)
	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama API error %d: %s", resp.StatusCode, string(respBody))
	}

	var chunk chatChunk
	if err := json.Unmarshal(respBody, &chunk); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return toResponse(chunk), nil
}

// GenerateStream performs one streaming completion, decoding newline-
// delimited JSON objects as Ollama emits them.
func (p *Provider) GenerateStream(ctx context.Context, req llm.Request, ch chan<- llm.StreamChunk) error {
	defer close(ch)

	wireReq := p.buildRequest(req, true)
	body, err := json.Marshal(wireReq)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama API error %d: %s", resp.StatusCode, string(respBody))
	}

	streamDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.logger.Info("context cancelled, force-closing ollama stream", zap.Error(ctx.Err()))
			resp.Body.Close()
		case <-streamDone:
		}
	}()
	defer close(streamDone)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var accContent strings.Builder
	var accToolCalls []llm.ToolCall
	var lastModel string
	var tokens int

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			select {
			case ch <- llm.StreamChunk{Err: fmt.Errorf("parse stream line: %w", err)}:
			case <-ctx.Done():
			}
			return fmt.Errorf("parse stream line: %w", err)
		}

		lastModel = chunk.Model
		if chunk.EvalCount > 0 {
			tokens = chunk.EvalCount
		}

		if chunk.Message.Content != "" {
			accContent.WriteString(chunk.Message.Content)
			select {
			case ch <- llm.StreamChunk{TextDelta: chunk.Message.Content}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		for i, tc := range chunk.Message.ToolCalls {
			accToolCalls = append(accToolCalls, llm.ToolCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments})
			delta := &llm.ToolCallDelta{Index: i, Name: tc.Function.Name}
			select {
			case ch <- llm.StreamChunk{ToolCallDelta: delta}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if chunk.Done {
			final := &llm.Response{
				Content:    accContent.String(),
				ToolCalls:  accToolCalls,
				ModelUsed:  lastModel,
				TokensUsed: tokens,
			}
			select {
			case ch <- llm.StreamChunk{Done: true, Final: final}:
			case <-ctx.Done():
			}
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

func toResponse(c chatChunk) *llm.Response {
	resp := &llm.Response{
		Content:    c.Message.Content,
		ModelUsed:  c.Model,
		TokensUsed: c.EvalCount,
	}
	for _, tc := range c.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return resp
}
