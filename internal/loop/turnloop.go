// Package loop implements the turn loop of spec §4.4: the core
// orchestrator that streams model output, dispatches tool calls in strict
// order, and drives the context manager and sleep state machine between
// turns.
package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ouro-run/ouro/internal/agent"
	ctxmgr "github.com/ouro-run/ouro/internal/context"
	"github.com/ouro-run/ouro/internal/event"
	"github.com/ouro-run/ouro/internal/llm"
	"github.com/ouro-run/ouro/internal/sessionlog"
	"github.com/ouro-run/ouro/internal/sleeper"
	"github.com/ouro-run/ouro/internal/tool"
	"github.com/ouro-run/ouro/pkg/safego"
)

// Config holds the recognized configuration keys of spec §6 that govern
// the turn loop and context manager.
type Config struct {
	Model                string
	ContextWindowTokens  int
	SoftThreshold        float64
	HardThreshold        float64
	CarryoverTurns       int
	MaxSleepDurationSecs int
	MaxRestarts          int // 0 = unlimited
	TurnDelay            time.Duration
	Temperature          float64
}

// TurnLoop is the core orchestrator. It owns the conversation and session
// counters exclusively, per spec §3's ownership rule.
type TurnLoop struct {
	cfg           Config
	client        llm.Client
	dispatcher    *tool.Dispatcher
	defs          []tool.Definition
	workspaceRoot string
	logParentDir  string
	signals       *Signals
	subagents     *tool.SubagentRegistry
	logger        *zap.Logger
	events        chan event.Event
	guard         *ctxmgr.Guard
	detector      *loopDetector
}

// New builds a TurnLoop ready to Run.
func New(cfg Config, client llm.Client, dispatcher *tool.Dispatcher, defs []tool.Definition, workspaceRoot, logParentDir string, signals *Signals, subagents *tool.SubagentRegistry, logger *zap.Logger) *TurnLoop {
	if cfg.ContextWindowTokens <= 0 {
		cfg.ContextWindowTokens = 128000
	}
	if cfg.SoftThreshold <= 0 {
		cfg.SoftThreshold = 0.70
	}
	if cfg.HardThreshold <= 0 {
		cfg.HardThreshold = 0.90
	}
	if cfg.CarryoverTurns <= 0 {
		cfg.CarryoverTurns = 4
	}

	guard := ctxmgr.NewGuard(ctxmgr.Config{
		ContextWindowTokens: cfg.ContextWindowTokens,
		SoftThreshold:       cfg.SoftThreshold,
		HardThreshold:       cfg.HardThreshold,
		CarryoverTurns:      cfg.CarryoverTurns,
	})

	return &TurnLoop{
		cfg:           cfg,
		client:        client,
		dispatcher:    dispatcher,
		defs:          defs,
		workspaceRoot: workspaceRoot,
		logParentDir:  logParentDir,
		signals:       signals,
		subagents:     subagents,
		logger:        logger,
		events:        make(chan event.Event, 256),
		guard:         guard,
		detector:      newLoopDetector(),
	}
}

// Events exposes the single-producer event channel. The dashboard (TUI or
// headless renderer) is its consumer; session-log records are written by
// the loop directly, not read off this channel.
func (l *TurnLoop) Events() <-chan event.Event { return l.events }

// Emit lets a tool (flag_discovery, in practice) push an event onto the
// same channel the loop itself writes to, keeping a single producer
// stream even though the discovery write happens inside a tool call.
func (l *TurnLoop) Emit(e event.Event) { l.emit(e) }

func (l *TurnLoop) emit(e event.Event) {
	select {
	case l.events <- e:
	default:
		// Unbounded in spirit; a full buffer means no consumer is draining.
		// The producer must never block, so the event is dropped rather
		// than stalling the loop.
		l.logger.Warn("event channel full, dropping event", zap.String("kind", string(e.Kind)))
	}
}

// Run drives sessions end to end, handling restarts until shutdown or
// MaxRestarts is exhausted.
func (l *TurnLoop) Run(ctx context.Context) error {
	if err := l.client.Reachable(ctx); err != nil {
		return fmt.Errorf("model runtime unreachable: %w", err)
	}
	ok, err := l.client.HasModel(ctx, l.cfg.Model)
	if err != nil {
		return fmt.Errorf("probing model %q: %w", l.cfg.Model, err)
	}
	if !ok {
		return fmt.Errorf("model %q is not installed on the runtime", l.cfg.Model)
	}

	sess := agent.NewSession(time.Now())
	var carryover []agent.Message
	var restartReason string
	var previousTurns int

	for {
		conv := &agent.Conversation{}
		conv.Append(agent.NewSystemMessage(BuildSystemPrompt(l.cfg.Model, l.workspaceRoot, l.defs, sess.ID, sess.RestartNumber)))
		if sess.RestartNumber > 1 {
			conv.Append(agent.NewSystemMessage(agent.RestartMarker(sess.RestartNumber, previousTurns, restartReason)))
			for _, m := range carryover {
				conv.Append(m)
			}
		}

		slog, err := sessionlog.Open(l.logParentDir, sess.ID)
		if err != nil {
			return fmt.Errorf("open session log: %w", err)
		}

		l.emit(event.SessionStarted(time.Now()))
		slog.Write(sessionlog.Record{EventType: sessionlog.EventSessionStart})

		outcome, err := l.runSession(ctx, sess, conv, slog)
		slog.Write(sessionlog.Record{EventType: sessionlog.EventSessionEnd})
		slog.Close()

		if err != nil {
			return err
		}
		if !outcome.restartRequired {
			return nil
		}

		l.emit(event.SessionRestarted(time.Now(), outcome.reason, sess.RestartNumber+1))
		next, turnsRun := sess.Restart(time.Now())
		carryover = ctxmgr.BuildCarryover(conv, l.cfg.CarryoverTurns)
		restartReason = outcome.reason
		previousTurns = turnsRun
		sess = next

		if l.cfg.MaxRestarts > 0 && sess.RestartNumber > l.cfg.MaxRestarts {
			return fmt.Errorf("max_restarts (%d) exceeded", l.cfg.MaxRestarts)
		}
	}
}

type sessionOutcome struct {
	restartRequired bool
	reason          string
}

// runSession executes the per-turn algorithm of spec §4.4 steps 1-9 until
// shutdown or a restart is required.
func (l *TurnLoop) runSession(ctx context.Context, sess *agent.Session, conv *agent.Conversation, slog *sessionlog.Logger) (sessionOutcome, error) {
	guardState := &ctxmgr.State{}

	for {
		if l.signals.Shutdown() {
			return sessionOutcome{}, nil
		}
		if l.signals.Paused() {
			l.emit(event.StateChanged(time.Now(), event.StatePaused, ""))
			for l.signals.Paused() && !l.signals.Shutdown() {
				time.Sleep(100 * time.Millisecond)
			}
			if l.signals.Shutdown() {
				return sessionOutcome{}, nil
			}
		}

		l.emit(event.StateChanged(time.Now(), event.StateThinking, ""))

		assistantText, calls, err := l.streamTurn(ctx, conv)
		if err != nil {
			l.emit(event.ErrorEvent(time.Now(), err.Error()))
			slog.Write(sessionlog.Record{EventType: sessionlog.EventError, Content: err.Error()})
			return sessionOutcome{}, err
		}
		slog.Write(sessionlog.Record{EventType: sessionlog.EventAssistantText, Turn: sess.TurnCount, Content: assistantText})

		if len(calls) == 0 {
			conv.Append(agent.NewAssistantMessage(assistantText, nil))
			l.finishTurn(sess, conv)
			continue
		}

		conv.Append(agent.NewAssistantMessage(assistantText, calls))
		l.emit(event.StateChanged(time.Now(), event.StateExecuting, ""))

		var lastResult string
		for _, call := range calls {
			argSummary := summarizeArgs(call.Arguments)
			l.emit(event.ToolCallStarted(time.Now(), call.ID, call.Name, argSummary))
			slog.Write(sessionlog.Record{EventType: sessionlog.EventToolCall, Turn: sess.TurnCount, CallID: call.ID, FnName: call.Name, FnArguments: call.Arguments})

			result := l.dispatcher.Dispatch(ctx, call.Name, call.Arguments)

			ok := !looksLikeError(result)
			l.emit(event.ToolCallCompleted(time.Now(), call.ID, ok, truncate(result, 200)))
			slog.Write(sessionlog.Record{EventType: sessionlog.EventToolResult, Turn: sess.TurnCount, CallID: call.ID, Result: result})

			conv.Append(agent.NewToolResponseMessage(call.ID, result))
			sess.ToolCallCount++
			lastResult = result

			if flagged, sig := l.detector.record(call.Name, argSummary); flagged {
				msg := fmt.Sprintf("loop detected: %q repeated %d times in a row", sig, loopDetectThreshold)
				l.emit(event.ErrorEvent(time.Now(), msg))
				slog.Write(sessionlog.Record{EventType: sessionlog.EventError, Turn: sess.TurnCount, Content: msg})
			}
		}

		if mode, sleepCfg, ok := parseSleepEnvelope(lastResult); ok {
			reason, slept := l.runSleep(ctx, mode, sleepCfg)
			conv.Append(agent.NewSystemMessage(agent.SleepEndedMarker(reason, slept)))
			slog.Write(sessionlog.Record{EventType: sessionlog.EventSystemMsg, Content: agent.SleepEndedMarker(reason, slept)})
			if reason == "shutdown" {
				return sessionOutcome{}, nil
			}
		}

		l.finishTurn(sess, conv)

		outcome := l.checkContext(conv, sess, guardState, slog)
		if outcome.restartRequired {
			return outcome, nil
		}

		if l.cfg.TurnDelay > 0 {
			time.Sleep(l.cfg.TurnDelay)
		}
	}
}

func (l *TurnLoop) finishTurn(sess *agent.Session, conv *agent.Conversation) {
	sess.IncrementTurn()
	sess.CharEstimate = conv.CharCount() / 4
	l.emit(event.CountersUpdated(time.Now(), sess.TurnCount, sess.ToolCallCount))
	l.emit(event.StateChanged(time.Now(), event.StateIdle, ""))
}

// checkContext consults the context manager and applies its outcome,
// returning whether a restart is now required.
func (l *TurnLoop) checkContext(conv *agent.Conversation, sess *agent.Session, guardState *ctxmgr.State, slog *sessionlog.Logger) sessionOutcome {
	out := l.guard.Check(conv, sess, guardState, -1, time.Now())

	if out.Masked {
		ctxmgr.ApplyMask(conv, sess, out, time.Now())
	}
	if out.CompactionNotice != "" {
		conv.Append(agent.NewSystemMessage(out.CompactionNotice))
		slog.Write(sessionlog.Record{EventType: sessionlog.EventSystemMsg, Content: out.CompactionNotice})
	}
	if out.WindDownNotice != "" {
		conv.Append(agent.NewSystemMessage(out.WindDownNotice))
		slog.Write(sessionlog.Record{EventType: sessionlog.EventSystemMsg, Content: out.WindDownNotice})
	}
	if out.Level != ctxmgr.LevelNone {
		level := event.PressureSoft
		if out.Level == ctxmgr.LevelHard {
			level = event.PressureHard
		}
		l.emit(event.ContextPressure(time.Now(), level, out.Pct))
	}

	if out.RestartRequired {
		return sessionOutcome{restartRequired: true, reason: "context_exhausted"}
	}
	return sessionOutcome{}
}

// runSleep blocks on the sleep state machine, translating the dispatched
// sleep envelope into a sleeper.Config.
func (l *TurnLoop) runSleep(ctx context.Context, mode string, scfg sleeper.Config) (reason string, slept time.Duration) {
	start := time.Now()
	display := scfg.DisplayText(scfg.Duration)
	l.emit(event.StateChanged(time.Now(), event.StateSleeping, display))

	if mode == string(sleeper.ModeManual) {
		l.signals.SetPaused(true)
	}

	statusFn := func(agentID string) string { return l.subagents.Status(agentID) }
	onTick := func(remaining time.Duration) {
		l.emit(event.StateChanged(time.Now(), event.StateSleeping, scfg.DisplayText(remaining)))
	}

	reason = sleeper.Run(ctx, scfg, l.signals, statusFn, onTick)

	if mode == string(sleeper.ModeManual) {
		l.signals.ClearPause()
	}
	l.emit(event.StateChanged(time.Now(), event.StateIdle, ""))
	return reason, time.Since(start)
}

// streamTurn invokes the model and accumulates streamed text and tool
// calls, per spec §4.4 steps 2-3.
func (l *TurnLoop) streamTurn(ctx context.Context, conv *agent.Conversation) (text string, calls []agent.ToolCall, err error) {
	req := llm.Request{
		Model:       l.cfg.Model,
		Messages:    toLLMMessages(conv),
		Tools:       toLLMToolDefs(l.defs),
		Temperature: l.cfg.Temperature,
	}

	ch := make(chan llm.StreamChunk, 32)
	streamErr := make(chan error, 1)
	safego.Go(l.logger, "llm-stream", func() {
		streamErr <- l.client.GenerateStream(ctx, req, ch)
	})

	var content string
	var toolCalls []agent.ToolCall
	for chunk := range ch {
		if chunk.Err != nil {
			return "", nil, chunk.Err
		}
		if chunk.TextDelta != "" {
			content += chunk.TextDelta
			l.emit(event.ThoughtText(time.Now(), chunk.TextDelta))
		}
		if chunk.ToolCallDelta != nil {
			d := chunk.ToolCallDelta
			toolCalls = append(toolCalls, agent.ToolCall{
				ID:        uuid.NewString(),
				Name:      d.Name,
				Arguments: parseArgs(d.ArgumentsJSON),
			})
		}
		if chunk.Done && chunk.Final != nil {
			content = chunk.Final.Content
			toolCalls = nil
			for _, tc := range chunk.Final.ToolCalls {
				toolCalls = append(toolCalls, agent.ToolCall{ID: uuid.NewString(), Name: tc.Name, Arguments: tc.Arguments})
			}
		}
	}
	if err := <-streamErr; err != nil {
		return "", nil, err
	}
	return content, toolCalls, nil
}
