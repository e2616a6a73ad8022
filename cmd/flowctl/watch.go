package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/polisai/polis-flow/pkg/config"
	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/editor"
	"github.com/polisai/polis-flow/pkg/telemetry"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a workflow document and serve ports, variables and validation over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := cmd.Flags().GetString("listen")
			if err != nil {
				return fmt.Errorf("failed to get listen flag: %w", err)
			}
			if addr == "" {
				addr = a.cfg.Metrics.Address
			}
			if addr == "" {
				addr = ":9464"
			}
			if a.workflowPath == "" {
				return errors.New("no workflow document given; use --workflow or workflow.file")
			}

			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return a.watch(ctx, addr)
		},
	}
	cmd.Flags().String("listen", "", "Address to serve on (defaults to metrics.address)")
	return cmd
}

func (a *app) watch(ctx context.Context, addr string) error {
	metrics := telemetry.NewMetrics()
	ws := &workspace{app: a, metrics: metrics}

	watcher, err := config.NewWorkflowWatcher(a.workflowPath, config.WatcherOptions{
		Logger: a.logger,
		OnReload: func(err error) {
			if err != nil {
				metrics.RecordWorkflowReload("error")
				return
			}
			metrics.RecordWorkflowReload("success")
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			a.logger.Warn("Failed to close workflow watcher", "error", err)
		}
	}()

	updates := watcher.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case wf := <-updates:
				if err := ws.update(ctx, wf); err != nil {
					a.logger.Error("Failed to apply workflow update", "error", err)
				}
			}
		}
	}()

	server := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(metrics.MetricsMiddleware(ws.routes()), "flow.watch"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	a.logger.Info("Server listening", "addr", listener.Addr().String(), "workflow", a.workflowPath)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Shutdown error", "error", err)
		return err
	}
	return nil
}

// workspace holds the editor built from the latest workflow version.
type workspace struct {
	app     *app
	metrics *telemetry.Metrics

	mu     sync.RWMutex
	editor *editor.Editor
	nodes  map[string]bool
}

func (ws *workspace) update(ctx context.Context, wf domain.Workflow) error {
	ed, _, err := ws.app.newEditor(ctx, wf)
	if err != nil {
		return err
	}
	changed, err := ed.SyncAllPorts(ctx)
	if err != nil {
		return err
	}

	kinds := make(map[string]int)
	nodes := make(map[string]bool, len(wf.Nodes))
	for _, n := range wf.Nodes {
		kinds[string(n.Type)]++
		nodes[n.ID] = true
	}
	ws.metrics.UpdateWorkflowShape(kinds, len(wf.Edges))

	problems, err := ed.Validate(ctx)
	if err != nil {
		return err
	}
	ws.metrics.UpdateValidation(problems)

	decision, err := ed.CanPublish(ctx)
	if err != nil {
		return err
	}
	ws.metrics.RecordPublishDecision(decision.Allowed)

	ws.mu.Lock()
	ws.editor = ed
	ws.nodes = nodes
	ws.mu.Unlock()

	ws.app.logger.Info("Workflow applied",
		"nodes", len(wf.Nodes),
		"edges", len(wf.Edges),
		"ports_changed", len(changed),
		"publishable", decision.Allowed,
	)
	return nil
}

func (ws *workspace) current() (*editor.Editor, map[string]bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.editor, ws.nodes
}

func (ws *workspace) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if ed, _ := ws.current(); ed == nil {
			http.Error(w, "workflow not loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", ws.metrics.Handler())
	mux.HandleFunc("/ports", ws.withNode(func(w http.ResponseWriter, r *http.Request, ed *editor.Editor, nodeID string) {
		res, err := ed.RefreshPorts(r.Context(), nodeID)
		if err != nil {
			ws.writeError(w, err)
			return
		}
		ws.respond(w, http.StatusOK, res.Ports)
	}))
	mux.HandleFunc("/variables", ws.withNode(func(w http.ResponseWriter, r *http.Request, ed *editor.Editor, nodeID string) {
		filter := domain.PortType(r.URL.Query().Get("type"))
		if filter != "" && !filter.Valid() {
			http.Error(w, fmt.Sprintf("unknown port type %q", filter), http.StatusBadRequest)
			return
		}
		groups, err := ed.UpstreamVariables(r.Context(), nodeID, filter)
		if err != nil {
			ws.writeError(w, err)
			return
		}
		ws.respond(w, http.StatusOK, groups)
	}))
	mux.HandleFunc("/validate", func(w http.ResponseWriter, r *http.Request) {
		ed, _ := ws.current()
		if ed == nil {
			http.Error(w, "workflow not loaded", http.StatusServiceUnavailable)
			return
		}
		decision, err := ed.CanPublish(r.Context())
		if err != nil {
			ws.writeError(w, err)
			return
		}
		status := http.StatusOK
		if !decision.Allowed {
			status = http.StatusConflict
		}
		ws.respond(w, status, decision)
	})
	return mux
}

func (ws *workspace) withNode(fn func(http.ResponseWriter, *http.Request, *editor.Editor, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ed, nodes := ws.current()
		if ed == nil {
			http.Error(w, "workflow not loaded", http.StatusServiceUnavailable)
			return
		}
		nodeID := r.URL.Query().Get("node")
		if nodeID == "" {
			http.Error(w, "missing node parameter", http.StatusBadRequest)
			return
		}
		if !nodes[nodeID] {
			http.Error(w, "node not found", http.StatusNotFound)
			return
		}
		fn(w, r, ed, nodeID)
	}
}

func (ws *workspace) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := writeJSON(w, v); err != nil {
		ws.app.logger.Warn("Failed to write response", "error", err)
	}
}

func (ws *workspace) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrNodeNotFound) {
		status = http.StatusNotFound
	}
	ws.app.logger.Error("Request failed", slog.Any("error", err))
	http.Error(w, err.Error(), status)
}
