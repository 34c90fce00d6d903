// Package config loads the optional subc.toml file that tunes codegen/emit
// knobs spec.md leaves as implementation details rather than CLI flags —
// grounded on lookbusy1344-arm_emulator/config's LoadFrom: read the file if
// present, fall back to built-in defaults otherwise, never error on a
// missing file.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type CodegenConfig struct {
	StackAlignment   int    `toml:"stack_alignment"`
	ScratchRegister  string `toml:"scratch_register"`
}

type EmitConfig struct {
	CommentInstructions bool `toml:"comment_instructions"`
}

type Config struct {
	Codegen CodegenConfig `toml:"codegen"`
	Emit    EmitConfig    `toml:"emit"`
}

// Default returns the built-in configuration used when no subc.toml or
// .subcrc.toml is found in the directory passed to Load (the CLI passes
// the input file's directory).
func Default() Config {
	return Config{
		Codegen: CodegenConfig{StackAlignment: 16, ScratchRegister: "r10"},
		Emit:    EmitConfig{CommentInstructions: false},
	}
}

// candidateNames are tried in order in the given directory; the first one
// that exists wins.
var candidateNames = []string{"subc.toml", ".subcrc.toml"}

// Load looks for subc.toml or .subcrc.toml in dir and merges it over
// Default(). A missing file is not an error; a malformed one is.
func Load(dir string) (Config, error) {
	cfg := Default()
	for _, name := range candidateNames {
		path := dir + string(os.PathSeparator) + name
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "config: decoding %s", path)
		}
		return cfg, validate(cfg)
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Codegen.StackAlignment < 8 || cfg.Codegen.StackAlignment&(cfg.Codegen.StackAlignment-1) != 0 {
		return errors.Errorf("config: stack_alignment must be a power of two >= 8, got %d", cfg.Codegen.StackAlignment)
	}
	switch cfg.Codegen.ScratchRegister {
	case "r10", "r11":
	default:
		return errors.Errorf("config: scratch_register must be r10 or r11, got %q", cfg.Codegen.ScratchRegister)
	}
	return nil
}
