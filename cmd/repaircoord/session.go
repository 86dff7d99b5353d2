package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/analyzers"
	"github.com/fumiya-kume/repaircoord/pkg/config"
	"github.com/fumiya-kume/repaircoord/pkg/coordination"
	"github.com/fumiya-kume/repaircoord/pkg/llm"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
	"github.com/fumiya-kume/repaircoord/pkg/ui"
)

// shutdownTimeout bounds how long a command waits for queued events on exit
const shutdownTimeout = 10 * time.Second

// session bundles what every coordinating command needs
type session struct {
	cfg         *config.Config
	coordinator *coordination.Coordinator
	readiness   coordination.ReadinessReport
	renderer    *ui.Renderer
}

// newSession builds a coordinator from cfg and registers the reference analyzers
func newSession(ctx context.Context, cfg *config.Config, opts ...coordination.Option) (*session, error) {
	settings, err := cfg.ToSettings()
	if err != nil {
		return nil, err
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return nil, err
	}

	registry := agents.NewRegistry()
	if err := analyzers.RegisterDefaults(registry, client, cfg.DisabledAgents()...); err != nil {
		return nil, fmt.Errorf("failed to register analyzers: %w", err)
	}

	coordinator := coordination.NewCoordinator(settings, opts...)
	readiness := coordinator.InitializeAgents(ctx, registry)
	if !readiness.SystemReady {
		logger.GetLogger().Warn("Agent system is not fully ready (errors: %v)", readiness.Errors)
	}

	return &session{
		cfg:         cfg,
		coordinator: coordinator,
		readiness:   readiness,
		renderer:    ui.NewRenderer(ui.ThemeByName(cfg.UI.Theme), ui.DefaultWidth),
	}, nil
}

// newLLMClient returns nil when the llm section is disabled
func newLLMClient(cfg *config.Config) (llm.Client, error) {
	if !cfg.LLM.Enabled {
		return nil, nil
	}
	client, err := llm.NewCommandClient(cfg.ToCommandConfig())
	if err != nil {
		return nil, err
	}
	return llm.NewRetryingClient(client, cfg.ToRetryConfig()), nil
}

func (rt *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.coordinator.Shutdown(ctx); err != nil {
		logger.GetLogger().Warn("Coordinator shutdown incomplete (error: %v)", err)
	}
}

// readYAMLFile decodes path into out; "-" reads standard input
func readYAMLFile(cmd *cobra.Command, path string, out any) error {
	if path == "" {
		return fmt.Errorf("an input file is required (use -f)")
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path) // #nosec G304 - path is provided by the user on purpose
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// readContext reads an analysis context file
func readContext(cmd *cobra.Command, path string) (agents.AnalysisContext, error) {
	actx := agents.AnalysisContext{}
	if err := readYAMLFile(cmd, path, &actx); err != nil {
		return nil, err
	}
	return actx, nil
}

// printResult writes value as JSON under --json, otherwise the rendered text
func printResult(cmd *cobra.Command, value any, render func() string) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err := fmt.Fprintln(out, render())
	return err
}
