package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/polisai/polis-flow/pkg/branch"
	"github.com/polisai/polis-flow/pkg/config"
	"github.com/polisai/polis-flow/pkg/domain"
)

func newPortsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ports [node-id]",
		Short: "Regenerate and print port schemas",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			wf, err := a.loadWorkflow()
			if err != nil {
				return err
			}
			ed, store, err := a.newEditor(ctx, wf)
			if err != nil {
				return err
			}

			changed, err := ed.SyncAllPorts(ctx)
			if err != nil {
				return err
			}
			a.logger.Debug("Port schemas synchronised", "changed", changed)

			write, err := cmd.Flags().GetBool("write")
			if err != nil {
				return fmt.Errorf("failed to get write flag: %w", err)
			}
			if write && len(changed) > 0 {
				if err := config.SaveWorkflow(a.workflowPath, store.Workflow()); err != nil {
					return err
				}
			}

			synced := store.Workflow()
			if len(args) == 1 {
				node, ok := synced.FindNode(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, args[0])
				}
				return writeJSON(cmd.OutOrStdout(), node.Data.Ports)
			}

			all := make(map[string]*domain.NodePortSchema, len(synced.Nodes))
			for _, n := range synced.Nodes {
				all[n.ID] = n.Data.Ports
			}
			return writeJSON(cmd.OutOrStdout(), all)
		},
	}
	cmd.Flags().Bool("write", false, "Write regenerated ports back to the workflow document")
	return cmd
}

func newVarsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vars <node-id>",
		Short: "List the upstream variables a node may reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			filter, err := cmd.Flags().GetString("type")
			if err != nil {
				return fmt.Errorf("failed to get type flag: %w", err)
			}
			if filter != "" && !domain.PortType(filter).Valid() {
				return fmt.Errorf("unknown port type %q", filter)
			}

			wf, err := a.loadWorkflow()
			if err != nil {
				return err
			}
			if _, ok := wf.FindNode(args[0]); !ok {
				return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, args[0])
			}
			ed, _, err := a.newEditor(ctx, wf)
			if err != nil {
				return err
			}

			groups, err := ed.UpstreamVariables(ctx, args[0], domain.PortType(filter))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), groups)
		},
	}
	cmd.Flags().StringP("type", "t", "", "Only list variables compatible with this port type")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the workflow and evaluate the publish policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := contextOf(cmd)
			wf, err := a.loadWorkflow()
			if err != nil {
				return err
			}
			ed, _, err := a.newEditor(ctx, wf)
			if err != nil {
				return err
			}

			decision, err := ed.CanPublish(ctx)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), decision); err != nil {
				return err
			}
			if !decision.Allowed {
				return errors.New("workflow is not publishable")
			}
			return nil
		},
	}
}

func newResolveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <consumer-node> <node.port>",
		Short: "Resolve a variable against recorded run state as seen by a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			statePath, err := cmd.Flags().GetString("state")
			if err != nil {
				return fmt.Errorf("failed to get state flag: %w", err)
			}
			if statePath == "" {
				return errors.New("--state is required")
			}
			state, err := loadRunState(statePath)
			if err != nil {
				return err
			}

			wf, err := a.loadWorkflow()
			if err != nil {
				return err
			}
			ed, _, err := a.newEditor(ctx, wf)
			if err != nil {
				return err
			}

			pool := ed.Pool()
			pool.Initialize(state.EnvironmentVariables, state.ConversationVariables)
			for nodeID, outputs := range state.NodeOutputs {
				pool.SetAllNodeOutputs(nodeID, outputs)
			}

			value, ok, err := ed.ResolvePath(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s has no recorded value", args[1])
			}
			return writeJSON(cmd.OutOrStdout(), value)
		},
	}
	cmd.Flags().StringP("state", "s", "", "Path to a variable pool snapshot (JSON)")
	return cmd
}

func loadRunState(path string) (domain.VariablePoolState, error) {
	//nolint:gosec // State path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.VariablePoolState{}, fmt.Errorf("failed to read state file %s: %w", path, err)
	}
	var state domain.VariablePoolState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.VariablePoolState{}, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	return state, nil
}

func newSetModelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-model <classifier-node>",
		Short: "Change the model of a classifier node and save the workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			var update branch.ModelUpdate
			for flag, dst := range map[string]**string{"provider": &update.Provider, "name": &update.Name, "mode": &update.Mode} {
				if !cmd.Flags().Changed(flag) {
					continue
				}
				value, err := cmd.Flags().GetString(flag)
				if err != nil {
					return fmt.Errorf("failed to get %s flag: %w", flag, err)
				}
				*dst = &value
			}

			wf, err := a.loadWorkflow()
			if err != nil {
				return err
			}
			ed, store, err := a.newEditor(ctx, wf)
			if err != nil {
				return err
			}

			res, err := ed.ChangeModel(ctx, args[0], update)
			if err != nil {
				return err
			}
			if err := config.SaveWorkflow(a.workflowPath, store.Workflow()); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res.Ports)
		},
	}
	cmd.Flags().String("provider", "", "Model provider")
	cmd.Flags().String("name", "", "Model name")
	cmd.Flags().String("mode", "", "Model mode")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <aggregator-node>",
		Short: "Print an aggregator node in the backend wire format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.loadWorkflow()
			if err != nil {
				return err
			}
			node, ok := wf.FindNode(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, args[0])
			}
			cfg, ok := node.Data.Config.(*domain.AggregatorConfig)
			if !ok {
				return fmt.Errorf("%w: %s is %s", domain.ErrUnsupportedKind, node.ID, node.Type)
			}
			return writeJSON(cmd.OutOrStdout(), branch.ToBackendFormat(cfg, node.Data.Ports))
		},
	}
}
