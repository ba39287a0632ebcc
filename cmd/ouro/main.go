package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ouro-run/ouro/internal/config"
	"github.com/ouro-run/ouro/internal/dashboard"
	"github.com/ouro-run/ouro/internal/llm/ollama"
	"github.com/ouro-run/ouro/internal/loop"
	"github.com/ouro-run/ouro/internal/logger"
	"github.com/ouro-run/ouro/internal/safety"
	"github.com/ouro-run/ouro/internal/tool"
	"github.com/ouro-run/ouro/pkg/safego"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ouro",
		Short: "ouro — an autonomous local-LLM agent harness",
	}

	var (
		headless   bool
		configPath string
		ollamaHost string
	)

	runCmd := &cobra.Command{
		Use:   "run <workspace> <model>",
		Short: "run a session against a workspace with the given model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(args[0], args[1], headless, configPath, ollamaHost)
		},
	}
	runCmd.Flags().BoolVar(&headless, "headless", false, "run with the line-oriented renderer instead of the full TUI")
	runCmd.Flags().StringVar(&configPath, "config", "", "path to ouro.yaml (default: ./ouro.yaml if present)")
	runCmd.Flags().StringVar(&ollamaHost, "ollama-host", "", "override the configured Ollama host")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ouro v%s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSession(workspaceArg, model string, headless bool, configPath, ollamaHostFlag string) error {
	workspace, err := filepath.Abs(workspaceArg)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	if info, err := os.Stat(workspace); err != nil || !info.IsDir() {
		return fmt.Errorf("workspace %q is not a directory", workspace)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.WorkspaceRoot = workspace
	if model != "" {
		cfg.Model = model
	}
	if ollamaHostFlag != "" {
		cfg.OllamaHost = ollamaHostFlag
	}

	logFormat := "console"
	logLevel := "info"
	if headless {
		logFormat = "json"
	}
	log, err := logger.New(logger.Config{Level: logLevel, Format: logFormat, OutputPath: "stderr"})
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer log.Sync()

	sandbox, err := safety.New(sandboxConfig(cfg, workspace), log)
	if err != nil {
		return fmt.Errorf("sandbox init: %w", err)
	}

	registry := tool.NewRegistry()
	subagents := tool.NewSubagentRegistry()

	registry.Register(tool.NewShellTool(sandbox))
	registry.Register(tool.NewFileReadTool(sandbox))
	registry.Register(tool.NewFileWriteTool(sandbox))
	registry.Register(tool.NewWebFetchTool())
	registry.Register(tool.NewWebSearchTool(tool.WebSearchConfig{
		DDGRateLimitSecs:   cfg.Search.DDGRateLimitSecs,
		BraveAPIKey:        cfg.Search.BraveAPIKey,
		BraveRateLimitSecs: cfg.Search.BraveRateLimitSecs,
	}))
	registry.Register(tool.NewSleepTool(cfg.Sleep.MaxSleepDurationSecs))
	registry.Register(tool.NewSubagentSpawnTool(subagents))
	registry.Register(tool.NewSubagentStatusTool(subagents))
	registry.Register(tool.NewSubagentKillTool(subagents))
	registry.Register(tool.NewSubagentListTool(subagents))
	registry.Register(tool.NewSubagentSendTool(subagents))
	registry.Register(tool.NewSubagentAwaitTool(subagents))

	signals := loop.NewSignals()

	dispatcher := tool.NewDispatcher(registry)

	client := ollama.New(cfg.OllamaHost, log)

	// Session logs live sibling to the workspace, not inside it (spec §6):
	// sessionlog.Open appends ".ouro-logs" to whatever parent it's given.
	logParentDir := filepath.Dir(workspace)

	tl := loop.New(loop.Config{
		Model:                cfg.Model,
		ContextWindowTokens:  cfg.ContextWindowTokens,
		SoftThreshold:        cfg.SoftThreshold,
		HardThreshold:        cfg.HardThreshold,
		CarryoverTurns:       cfg.CarryoverTurns,
		MaxSleepDurationSecs: cfg.Sleep.MaxSleepDurationSecs,
		MaxRestarts:          cfg.MaxRestarts,
		Temperature:          0.7,
	}, client, dispatcher, tool.StandardDefinitions(), workspace, logParentDir, signals, subagents, log)

	discoveryTool, err := tool.NewDiscoveryTool(workspace, tl.Emit)
	if err != nil {
		return fmt.Errorf("discovery tool init: %w", err)
	}
	registry.Register(discoveryTool)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	safego.Go(log, "signal-handler", func() {
		<-quit
		if signals.RequestShutdown() {
			log.Warn("second interrupt received, forcing exit")
			os.Exit(1)
		}
		log.Info("shutdown requested, finishing current turn")
		<-quit
		os.Exit(1)
	})

	errCh := make(chan error, 1)
	safego.Go(log, "turn-loop", func() {
		errCh <- tl.Run(ctx)
	})

	if headless {
		h := dashboard.NewHeadless(os.Stdout)
		safego.Go(log, "headless-renderer", func() { h.Run(tl.Events()) })
		return <-errCh
	}

	m := dashboard.NewModel(tl.Events(), signals)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		cancel()
		return fmt.Errorf("tui: %w", err)
	}

	cancel()
	return <-errCh
}

func sandboxConfig(cfg *config.Config, workspace string) *safety.Config {
	sc := safety.DefaultConfig(workspace)
	if len(cfg.CommandFilter.Allow) > 0 {
		sc.AllowedBins = cfg.CommandFilter.Allow
	}
	if len(cfg.CommandFilter.Deny) > 0 {
		sc.DenyPatterns = cfg.CommandFilter.Deny
	}
	return sc
}
