package main

import (
	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/engine"
)

// colorPalette is a default palette used to assign distinct colors to meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs scripts and shapes their reports for output.
type App struct {
	engine *engine.Engine
}

// MeshData is the JSON-serializable mesh format written by kerf eval.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalResult is the full result of one script.
type EvalResult struct {
	Queries     []engine.QueryResult `json:"queries"`
	Meshes      []MeshData           `json:"meshes"`
	Diagnostics []diag.Diagnostic    `json:"diagnostics"`
	Errors      []engine.EvalError   `json:"errors"`
}

// OK reports whether the script ran to completion.
func (r EvalResult) OK() bool {
	return len(r.Errors) == 0
}

// NewApp creates an App whose engine is configured by cfg.
func NewApp(cfg config.Config) *App {
	return &App{engine: engine.NewEngine(cfg)}
}

// Evaluate takes Lisp source and returns its queries, meshes and errors.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Queries:     []engine.QueryResult{},
		Meshes:      []MeshData{},
		Diagnostics: []diag.Diagnostic{},
		Errors:      []engine.EvalError{},
	}

	report, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		diag.Logger().WithError(err).Error("evaluate failed")
		result.Errors = append(result.Errors, engine.EvalError{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		result.Errors = append(result.Errors, evalErrs...)
		return result
	}

	result.Queries = report.Queries
	result.Diagnostics = report.Diagnostics
	for i, m := range report.Meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Name:     m.Name,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return result
}
