// Package main is the entry point for the flowctl binary. It inspects and
// edits workflow documents: port schemas, upstream variables, validation and
// variable resolution.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/polisai/polis-flow/pkg/config"
	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/editor"
	"github.com/polisai/polis-flow/pkg/logging"
	"github.com/polisai/polis-flow/pkg/policy"
	"github.com/polisai/polis-flow/pkg/storage"
	"github.com/polisai/polis-flow/pkg/telemetry"
	"github.com/polisai/polis-flow/pkg/upstream"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg          *config.Config
	workflowPath string
	logger       *slog.Logger
	shutdown     func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "flowctl",
		Short: "Inspect and edit workflow documents",
		Long: `flowctl works on a workflow document (YAML or JSON) and answers the
questions the workflow editor asks: which ports a node exposes, which upstream
variables it may reference, and whether the workflow is ready to publish.

Example:
  flowctl -w support.yaml vars classifier --type string`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(contextOf(cmd))
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringP("workflow", "w", "", "Path to the workflow document")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newPortsCmd(a),
		newVarsCmd(a),
		newValidateCmd(a),
		newResolveCmd(a),
		newSetModelCmd(a),
		newExportCmd(a),
		newWatchCmd(a),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return fmt.Errorf("failed to get log-level flag: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	workflowPath, err := cmd.Flags().GetString("workflow")
	if err != nil {
		return fmt.Errorf("failed to get workflow flag: %w", err)
	}
	if workflowPath == "" {
		workflowPath = cfg.Workflow.File
	}

	a.cfg = cfg
	a.workflowPath = workflowPath
	a.logger = logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	slog.SetDefault(a.logger)

	a.shutdown, err = telemetry.SetupProvider(contextOf(cmd), telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Environment: cfg.Telemetry.Environment,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     cfg.Telemetry.Headers,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func (a *app) loadWorkflow() (domain.Workflow, error) {
	if a.workflowPath == "" {
		return domain.Workflow{}, fmt.Errorf("no workflow document given; use --workflow or workflow.file")
	}
	return config.LoadWorkflow(a.workflowPath)
}

// newEditor wires an editor over an in-memory copy of wf.
func (a *app) newEditor(ctx context.Context, wf domain.Workflow) (*editor.Editor, *storage.MemoryGraphStore, error) {
	vision, err := a.visionDetector(ctx)
	if err != nil {
		return nil, nil, err
	}
	gate, err := a.publishGate(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := a.cfg.Collector.Options(a.logger)
	store := storage.NewMemoryGraphStore(wf)
	ed := editor.New(editor.Config{
		Store:     store,
		Collector: upstream.NewCollector(opts, a.cfg.Collector.CacheSize),
		Upstream:  opts,
		Vision:    vision,
		Publish:   gate,
		Runs:      storage.NewMemoryRunStore(),
		Logger:    a.logger,
	})
	return ed, store, nil
}

func (a *app) visionDetector(ctx context.Context) (*policy.VisionDetector, error) {
	modules, err := config.ReadModules(a.cfg.Policy.VisionPath)
	if err != nil {
		return nil, fmt.Errorf("vision policy: %w", err)
	}
	return policy.NewVisionDetector(ctx, policy.VisionOptions{
		Modules:    modules,
		Entrypoint: a.cfg.Policy.VisionEntrypoint,
		Mode:       policy.Mode(a.cfg.Policy.VisionMode),
		Logger:     a.logger,
	})
}

func (a *app) publishGate(ctx context.Context) (*policy.PublishGate, error) {
	modules, err := config.ReadModules(a.cfg.Policy.PublishPath)
	if err != nil {
		return nil, fmt.Errorf("publish policy: %w", err)
	}
	return policy.NewPublishGate(ctx, policy.PublishOptions{
		Modules:    modules,
		Entrypoint: a.cfg.Policy.PublishEntrypoint,
		Mode:       policy.Mode(a.cfg.Policy.PublishMode),
		Logger:     a.logger,
	})
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
