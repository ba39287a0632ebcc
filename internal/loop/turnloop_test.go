package loop

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ouro-run/ouro/internal/event"
	"github.com/ouro-run/ouro/internal/llm"
	"github.com/ouro-run/ouro/internal/tool"
)

type echoTool struct{}

func (echoTool) Name() string { return "echo" }
func (echoTool) Kind() tool.Kind { return tool.KindControl }
func (echoTool) Execute(ctx context.Context, args map[string]interface{}) string {
	return `{"echo":true}`
}

// fakeClient replays a fixed queue of responses, one per GenerateStream
// call, then errors once exhausted so the test loop terminates.
type fakeClient struct {
	responses []llm.Response
	calls     int
}

func (f *fakeClient) Reachable(ctx context.Context) error { return nil }
func (f *fakeClient) HasModel(ctx context.Context, model string) (bool, error) { return true, nil }
func (f *fakeClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return nil, errors.New("not used")
}
func (f *fakeClient) GenerateStream(ctx context.Context, req llm.Request, ch chan<- llm.StreamChunk) error {
	defer close(ch)
	if f.calls >= len(f.responses) {
		return errors.New("queue exhausted")
	}
	resp := f.responses[f.calls]
	f.calls++
	ch <- llm.StreamChunk{Done: true, Final: &resp}
	return nil
}

func TestTurnLoopDispatchesToolCallsAndAdvancesTurns(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{Name: "echo", Arguments: map[string]interface{}{"text": "hi"}}}},
		{Content: "final answer"},
	}}

	registry := tool.NewRegistry()
	registry.Register(echoTool{})
	dispatcher := tool.NewDispatcher(registry)

	signals := NewSignals()
	subagents := tool.NewSubagentRegistry()
	workspace := t.TempDir()
	logDir := t.TempDir()

	tl := New(Config{Model: "test-model", ContextWindowTokens: 1_000_000}, client, dispatcher, tool.StandardDefinitions(), workspace, logDir, signals, subagents, zap.NewNop())

	var sawToolStart, sawToolDone, sawSessionStarted bool
	var counters []int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range tl.Events() {
			switch e.Kind {
			case event.KindSessionStarted:
				sawSessionStarted = true
			case event.KindToolCallStarted:
				sawToolStart = true
			case event.KindToolCallDone:
				sawToolDone = true
			case event.KindCountersUpdated:
				counters = append(counters, e.Turn)
			}
		}
	}()

	err := tl.Run(context.Background())
	close(tl.events)
	<-done

	if err == nil {
		t.Fatal("expected an error once the fake client's response queue is exhausted")
	}
	if !sawSessionStarted {
		t.Error("expected SessionStarted event")
	}
	if !sawToolStart || !sawToolDone {
		t.Error("expected ToolCallStarted and ToolCallCompleted events")
	}
	if len(counters) < 2 || counters[0] != 1 || counters[1] != 2 {
		t.Fatalf("expected turn counters [1,2,...], got %v", counters)
	}
}

func TestTurnLoopEmitsErrorEventOnRepeatedIdenticalToolCall(t *testing.T) {
	repeatedCall := llm.ToolCall{Name: "echo", Arguments: map[string]interface{}{"text": "hi"}}
	responses := make([]llm.Response, 0, loopDetectThreshold+1)
	for i := 0; i < loopDetectThreshold; i++ {
		responses = append(responses, llm.Response{ToolCalls: []llm.ToolCall{repeatedCall}})
	}
	responses = append(responses, llm.Response{Content: "final answer"})
	client := &fakeClient{responses: responses}

	registry := tool.NewRegistry()
	registry.Register(echoTool{})
	dispatcher := tool.NewDispatcher(registry)

	signals := NewSignals()
	subagents := tool.NewSubagentRegistry()
	workspace := t.TempDir()
	logDir := t.TempDir()

	tl := New(Config{Model: "test-model", ContextWindowTokens: 1_000_000}, client, dispatcher, tool.StandardDefinitions(), workspace, logDir, signals, subagents, zap.NewNop())

	var sawLoopError bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range tl.Events() {
			if e.Kind == event.KindError && strings.Contains(e.Text, "loop detected") {
				sawLoopError = true
			}
		}
	}()

	err := tl.Run(context.Background())
	close(tl.events)
	<-done

	if err == nil {
		t.Fatal("expected an error once the fake client's response queue is exhausted")
	}
	if !sawLoopError {
		t.Error("expected an Error event once the identical tool call repeated past the threshold")
	}
}

func TestTurnLoopUnreachableRuntimeFailsFast(t *testing.T) {
	client := &alwaysUnreachableClient{}
	registry := tool.NewRegistry()
	dispatcher := tool.NewDispatcher(registry)
	signals := NewSignals()
	subagents := tool.NewSubagentRegistry()

	tl := New(Config{Model: "m"}, client, dispatcher, nil, t.TempDir(), t.TempDir(), signals, subagents, zap.NewNop())
	err := tl.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error when the runtime is unreachable")
	}
}

type alwaysUnreachableClient struct{}

func (alwaysUnreachableClient) Reachable(ctx context.Context) error { return errors.New("connection refused") }
func (alwaysUnreachableClient) HasModel(ctx context.Context, model string) (bool, error) { return false, nil }
func (alwaysUnreachableClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return nil, errors.New("unreachable")
}
func (alwaysUnreachableClient) GenerateStream(ctx context.Context, req llm.Request, ch chan<- llm.StreamChunk) error {
	close(ch)
	return errors.New("unreachable")
}
