// Package config holds the tolerances and sampling defaults shared by the
// kernel, the script engine and the kerf command.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
)

// Config is the decoded form of a kerf TOML file:
//
//	[tolerance]
//	distance = 1e-6
//	angle = 1e-6
//
//	[sampling]
//	steps = 32
//
//	[mesh]
//	u_steps = 16
//	v_steps = 16
//
//	[eval]
//	timeout = "5s"
type Config struct {
	Tolerance Tolerance `toml:"tolerance"`
	Sampling  Sampling  `toml:"sampling"`
	Mesh      Mesh      `toml:"mesh"`
	Eval      Eval      `toml:"eval"`
}

type Tolerance struct {
	Distance float64 `toml:"distance"`
	Angle    float64 `toml:"angle"`
}

// Sampling controls curve polylines.
type Sampling struct {
	Steps int `toml:"steps"`
}

// Mesh controls surface tessellation grids.
type Mesh struct {
	USteps int `toml:"u_steps"`
	VSteps int `toml:"v_steps"`
}

// Eval bounds script evaluation.
type Eval struct {
	Timeout time.Duration `toml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tolerance: Tolerance{
			Distance: geom.DefaultDistanceTolerance,
			Angle:    geom.DefaultAngleTolerance,
		},
		Sampling: Sampling{Steps: 32},
		Mesh:     Mesh{USteps: 16, VSteps: 16},
		Eval:     Eval{Timeout: 5 * time.Second},
	}
}

// Load reads a TOML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads TOML from r on top of the defaults and validates the result.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: unknown key %q", undecoded[0].String())
	}
	if diags := cfg.Validate(); len(diags) > 0 {
		return Config{}, fmt.Errorf("config: %w", diags[0])
	}
	return cfg, nil
}

// GeomTolerance converts the tolerance section for the geometry packages.
func (c Config) GeomTolerance() geom.Tolerance {
	return geom.Tolerance{Distance: c.Tolerance.Distance, Angle: c.Tolerance.Angle}
}

// Validate returns one diagnostic per out-of-range setting.
func (c Config) Validate() []diag.Diagnostic {
	var out []diag.Diagnostic
	check := func(ok bool, code diag.Code, field, format string, args ...any) {
		if !ok {
			out = append(out, diag.Diagnostic{
				Code:    code,
				Op:      "config",
				Index:   -1,
				Message: field + ": " + fmt.Sprintf(format, args...),
			})
		}
	}
	check(c.Tolerance.Distance > 0, diag.CodeTolerance, "tolerance.distance", "must be positive, got %g", c.Tolerance.Distance)
	check(c.Tolerance.Angle > 0, diag.CodeTolerance, "tolerance.angle", "must be positive, got %g", c.Tolerance.Angle)
	check(c.Sampling.Steps >= 2, diag.CodeInvalid, "sampling.steps", "must be at least 2, got %d", c.Sampling.Steps)
	check(c.Mesh.USteps >= 1, diag.CodeInvalid, "mesh.u_steps", "must be at least 1, got %d", c.Mesh.USteps)
	check(c.Mesh.VSteps >= 1, diag.CodeInvalid, "mesh.v_steps", "must be at least 1, got %d", c.Mesh.VSteps)
	check(c.Eval.Timeout > 0, diag.CodeInvalid, "eval.timeout", "must be positive, got %v", c.Eval.Timeout)
	return out
}
