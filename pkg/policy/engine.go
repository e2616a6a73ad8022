package policy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"sort"
	"strings"
	"sync"

	//nolint:staticcheck // OPA v1 migration pending
	"github.com/open-policy-agent/opa/ast"
	//nolint:staticcheck // OPA v1 migration pending
	"github.com/open-policy-agent/opa/rego"

	"github.com/polisai/polis-flow/pkg/lru"
)

// EngineOptions control OPA engine construction and runtime behaviour.
type EngineOptions struct {
	// Entrypoint is the default decision path (e.g. "flow/vision/supports").
	Entrypoint string
	// Modules contains the Rego modules that should be loaded into the engine.
	Modules map[string]string
	// CacheMaxEntries bounds the decision cache size (LRU). Zero selects the
	// default size; negative disables caching entirely.
	CacheMaxEntries int
	Logger          *slog.Logger
}

// Engine evaluates policy decisions using an embedded OPA SDK instance.
type Engine struct {
	moduleOrder   []string
	parsedModules map[string]*ast.Module
	entrypoint    string
	cache         *lru.Cache[Decision]
	queries       map[string]*rego.PreparedEvalQuery
	logger        *slog.Logger
	mu            sync.RWMutex
}

const defaultCacheCapacity = 512

// NewEngine parses the modules and prepares the default entrypoint.
func NewEngine(ctx context.Context, opts EngineOptions) (*Engine, error) {
	entry := strings.TrimSpace(opts.Entrypoint)
	if entry == "" {
		return nil, errors.New("policy engine requires an entrypoint")
	}
	if len(opts.Modules) == 0 {
		return nil, errors.New("policy engine requires at least one rego module")
	}

	maxEntries := opts.CacheMaxEntries
	switch {
	case maxEntries == 0:
		maxEntries = defaultCacheCapacity
	case maxEntries < 0:
		maxEntries = 0
	}

	var cache *lru.Cache[Decision]
	if maxEntries > 0 {
		cache = lru.New[Decision](maxEntries)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	moduleOrder := make([]string, 0, len(opts.Modules))
	for name := range opts.Modules {
		moduleOrder = append(moduleOrder, name)
	}
	sort.Strings(moduleOrder)

	parsedModules := make(map[string]*ast.Module, len(opts.Modules))
	for _, name := range moduleOrder {
		module, err := ast.ParseModuleWithOpts(name, opts.Modules[name], ast.ParserOptions{RegoVersion: ast.RegoV1})
		if err != nil {
			return nil, fmt.Errorf("parse rego module %q: %w", name, err)
		}
		parsedModules[name] = module
	}

	engine := &Engine{
		moduleOrder:   moduleOrder,
		parsedModules: parsedModules,
		entrypoint:    entry,
		cache:         cache,
		queries:       make(map[string]*rego.PreparedEvalQuery),
		logger:        logger,
	}

	// Warm the default entrypoint to surface compile errors early.
	if _, err := engine.getPreparedQuery(ctx, entry); err != nil {
		return nil, fmt.Errorf("compile rego modules: %w", err)
	}

	return engine, nil
}

// Evaluate executes the policy against input.Payload. A boolean result maps
// to Allowed; an object result may carry "allow", "reasons" and any other
// keys, which are returned as Outputs. An undefined result is a denial.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	entry := strings.TrimSpace(input.Entrypoint)
	if entry == "" {
		entry = e.entrypoint
	}

	cacheKey, shouldCache := e.cacheKey(entry, input)
	if shouldCache {
		if cached, ok := e.cache.Get(cacheKey); ok {
			return cloneDecision(cached), nil
		}
	}

	prepared, err := e.getPreparedQuery(ctx, entry)
	if err != nil {
		return Decision{}, fmt.Errorf("prepare query: %w", err)
	}

	e.logger.Debug("Evaluating policy", "entrypoint", entry)
	results, err := prepared.Eval(ctx, rego.EvalInput(input.Payload))
	if err != nil {
		return Decision{}, fmt.Errorf("opa decision: %w", err)
	}

	decision := Decision{Outputs: map[string]any{}}
	if len(results) > 0 && len(results[0].Expressions) > 0 {
		decision, err = parseDecision(results[0].Expressions[0].Value)
		if err != nil {
			return Decision{}, err
		}
	}

	if shouldCache {
		e.cache.Add(cacheKey, decision)
	}
	return cloneDecision(decision), nil
}

// FlushCache clears all cached decisions. Safe to call concurrently.
func (e *Engine) FlushCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

func (e *Engine) getPreparedQuery(ctx context.Context, entry string) (*rego.PreparedEvalQuery, error) {
	e.mu.RLock()
	if prepared, ok := e.queries[entry]; ok {
		e.mu.RUnlock()
		return prepared, nil
	}
	e.mu.RUnlock()

	query := "data." + strings.ReplaceAll(entry, "/", ".")

	opts := make([]func(*rego.Rego), 0, len(e.parsedModules)+1)
	opts = append(opts, rego.Query(query))
	for _, name := range e.moduleOrder {
		opts = append(opts, rego.ParsedModule(e.parsedModules[name]))
	}

	prepared, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Another goroutine may have already prepared the query; respect first entry.
	if existing, ok := e.queries[entry]; ok {
		return existing, nil
	}
	e.queries[entry] = &prepared
	return &prepared, nil
}

func (e *Engine) cacheKey(entry string, input Input) (string, bool) {
	if e.cache == nil || input.DisableCache {
		return "", false
	}
	// encoding/json sorts map keys, so equal payloads encode identically.
	payload, err := json.Marshal(input.Payload)
	if err != nil {
		return "", false
	}

	h := sha256.New()
	writeCacheKeyField(h, entry)
	writeCacheKeyField(h, string(payload))
	return hex.EncodeToString(h.Sum(nil)), true
}

// writeCacheKeyField writes a field to the hash followed by a null delimiter.
func writeCacheKeyField(h hash.Hash, value string) {
	h.Write([]byte(value))
	h.Write([]byte{0})
}

func parseDecision(value any) (Decision, error) {
	switch typed := value.(type) {
	case bool:
		return Decision{Allowed: typed, Outputs: map[string]any{}}, nil
	case map[string]any:
		decision := Decision{Outputs: map[string]any{}}
		if raw, ok := typed["allow"]; ok {
			allowed, ok := raw.(bool)
			if !ok {
				return Decision{}, fmt.Errorf("opa decision: allow must be bool, got %T", raw)
			}
			decision.Allowed = allowed
		}
		decision.Reasons = parseReasons(typed["reasons"])
		for key, v := range typed {
			switch key {
			case "allow", "reasons":
				continue
			default:
				decision.Outputs[key] = v
			}
		}
		return decision, nil
	default:
		return Decision{}, fmt.Errorf("opa decision: unexpected result type %T", value)
	}
}

func parseReasons(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	reasons := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			reasons = append(reasons, s)
		}
	}
	sort.Strings(reasons)
	return reasons
}

func cloneDecision(dec Decision) Decision {
	out := Decision{
		Allowed: dec.Allowed,
		Reasons: append([]string(nil), dec.Reasons...),
		Outputs: make(map[string]any, len(dec.Outputs)),
	}
	for key, value := range dec.Outputs {
		out.Outputs[key] = value
	}
	return out
}
