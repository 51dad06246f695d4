// Package config loads the settings internal/maincmd's CLI harness and
// lang/compiler need before a compilation starts: the parens-inference
// iteration bound, the gensym prefix, and the step/call budgets
// forwarded to the comptime VM a macro body runs against.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds every setting a lacewing invocation can be tuned with.
// Fields are first defaulted by their struct tags, then overridden by a
// YAML file (if one is given), then overridden again by the environment
// — last writer wins.
type Config struct {
	// InferParensMaxIterations bounds the parens-inference pre-pass
	// (SPEC_FULL.md's supplemented duckLisp_infer_* behavior): a
	// best-effort textual rewrite, not a parser feature, so it must have
	// a hard iteration ceiling rather than running to a fixpoint.
	InferParensMaxIterations int `yaml:"infer_parens_max_iterations" env:"LACEWING_INFER_PARENS_MAX_ITERATIONS" envDefault:"8"`

	// GensymPrefix is loaded like every other field, but nothing in
	// lang/compiler reads it: Compiler.Gensym always names its symbols
	// with a NUL byte followed by the counter in hex.
	GensymPrefix string `yaml:"gensym_prefix" env:"LACEWING_GENSYM_PREFIX" envDefault:"__g"`

	// GensymSeed is loaded like every other field, but nothing in
	// lang/compiler reads it: Compiler.Gensym's counter always starts at 0.
	GensymSeed uint64 `yaml:"gensym_seed" env:"LACEWING_GENSYM_SEED" envDefault:"0"`

	// MaxSteps bounds the runtime and comptime VMs' instruction counts
	//; 0 means unbounded. A macro body that doesn't
	// terminate would otherwise hang the compilation that's expanding it.
	MaxSteps int64 `yaml:"max_steps" env:"LACEWING_MAX_STEPS" envDefault:"0"`

	// MaxCallDepth bounds Go-native call-stack recursion in the VM (each
	// lisp-level call recurses once into the interpreter's run loop).
	MaxCallDepth int `yaml:"max_call_depth" env:"LACEWING_MAX_CALL_DEPTH" envDefault:"0"`
}

// Load builds a Config from defaults, optionally overlaid by the YAML
// file at yamlPath (skipped entirely if yamlPath is empty), then
// overlaid by environment variables.
func Load(yamlPath string) (Config, error) {
	var cfg Config
	if yamlPath != "" {
		b, err := os.ReadFile(yamlPath)
		if err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", yamlPath, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: reading environment: %w", err)
	}
	return cfg, nil
}
