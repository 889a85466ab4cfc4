package opa

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"
)

//go:embed policies/*.rego
var embedded embed.FS

const gateQuery = "data.wordbuddy.gate.decision"

// Config selects where policies are loaded from.
type Config struct {
	// PolicyDir overrides the embedded policies with *.rego files from disk.
	PolicyDir string
}

// Engine wraps OPA rego engine for policy evaluation
type Engine struct {
	config Config
	logger zerolog.Logger

	mu        sync.RWMutex
	gateQuery rego.PreparedEvalQuery
	modules   map[string]*ast.Module
}

// GateDecision is the result of the gate policy.
type GateDecision struct {
	Allow     bool   `json:"allow"`
	Reason    string `json:"reason"`
	Remaining int    `json:"remaining"`
	Consume   bool   `json:"consume"`
}

// NewEngine creates a new OPA engine
func NewEngine(config Config, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		config: config,
		logger: logger.With().Str("component", "opa").Logger(),
	}

	modules, err := e.loadPolicies()
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	query, err := prepareGateQuery(modules)
	if err != nil {
		return nil, err
	}

	e.modules = modules
	e.gateQuery = query

	e.logger.Info().Str("source", e.source()).Int("modules", len(modules)).Msg("OPA engine initialized")

	return e, nil
}

func (e *Engine) source() string {
	if e.config.PolicyDir == "" {
		return "embedded"
	}
	return e.config.PolicyDir
}

// loadPolicies parses every .rego file from the policy directory, or the
// embedded set when no directory is configured.
func (e *Engine) loadPolicies() (map[string]*ast.Module, error) {
	var fsys fs.FS = embedded
	pattern := "policies/*.rego"
	if e.config.PolicyDir != "" {
		fsys = os.DirFS(e.config.PolicyDir)
		pattern = "*.rego"
	}

	files, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob policy files: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", e.source())
	}

	e.logger.Debug().Int("count", len(files)).Msg("Loading policy files")

	modules := make(map[string]*ast.Module, len(files))
	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file %s: %w", file, err)
		}

		name := filepath.Base(file)
		module, err := ast.ParseModule(name, string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse policy file %s: %w", file, err)
		}

		modules[name] = module
		e.logger.Debug().Str("file", name).Str("package", module.Package.Path.String()).Msg("Loaded policy module")
	}

	return modules, nil
}

// prepareGateQuery compiles the gate decision query
func prepareGateQuery(modules map[string]*ast.Module) (rego.PreparedEvalQuery, error) {
	opts := []func(*rego.Rego){rego.Query(gateQuery)}
	for _, module := range modules {
		opts = append(opts, rego.ParsedModule(module))
	}

	query, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("failed to prepare gate query: %w", err)
	}
	return query, nil
}

// EvaluateGate evaluates the gate policy against a set of facts
func (e *Engine) EvaluateGate(ctx context.Context, input map[string]interface{}) (*GateDecision, error) {
	startTime := time.Now()

	e.mu.RLock()
	query := e.gateQuery
	e.mu.RUnlock()

	results, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("gate query evaluation failed: %w", err)
	}

	e.logger.Debug().Dur("duration", time.Since(startTime)).Msg("Gate query evaluated")

	if len(results) == 0 {
		return nil, fmt.Errorf("no results from gate query")
	}

	if len(results[0].Expressions) == 0 {
		return nil, fmt.Errorf("no expressions in gate query result")
	}

	resultBytes, err := json.Marshal(results[0].Expressions[0].Value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gate decision: %w", err)
	}

	var decision GateDecision
	if err := json.Unmarshal(resultBytes, &decision); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gate decision: %w", err)
	}

	return &decision, nil
}

// Reload reloads all policies. A failed reload keeps the previous query.
func (e *Engine) Reload() error {
	e.logger.Info().Str("source", e.source()).Msg("Reloading OPA policies")

	modules, err := e.loadPolicies()
	if err != nil {
		return fmt.Errorf("failed to reload policies: %w", err)
	}

	query, err := prepareGateQuery(modules)
	if err != nil {
		return fmt.Errorf("failed to re-prepare gate query: %w", err)
	}

	e.mu.Lock()
	e.modules = modules
	e.gateQuery = query
	e.mu.Unlock()

	e.logger.Info().Msg("OPA policies reloaded successfully")

	return nil
}

// Modules returns the names of the loaded policy modules.
func (e *Engine) Modules() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.modules))
	for name := range e.modules {
		names = append(names, name)
	}
	return names
}
