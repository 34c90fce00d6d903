package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"

	"subc/compiler"
	"subc/config"
)

var description = strings.ReplaceAll(`
subc compiles a teaching-sized subset of C directly to x86-64 System V
assembly. It stops after writing the .s file in every case: invoking the
system assembler/linker to finish producing a binary is left to the caller.
`, "\n", " ")

var app = cli.New(description).
	WithArg(cli.NewArg("input", "The .c source file to compile")).
	WithOption(cli.NewOption("lex", "Stop after lexing").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("parse", "Stop after parsing").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("validate", "Stop after semantic analysis").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("tacky", "Stop after IR generation").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("codegen", "Stop after code generation; no file written").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("s", "Produce <input>.s and stop").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("debug", "Emit stage dumps to stdout").WithType(cli.TypeBool)).
	WithAction(handler)

func stageFromOptions(options map[string]string) compiler.Stage {
	switch {
	case has(options, "lex"):
		return compiler.StageLex
	case has(options, "parse"):
		return compiler.StageParse
	case has(options, "validate"):
		return compiler.StageValidate
	case has(options, "tacky"):
		return compiler.StageTacky
	case has(options, "codegen"):
		return compiler.StageCodegen
	default:
		return compiler.StageAll
	}
}

func has(options map[string]string, name string) bool {
	_, ok := options[name]
	return ok
}

func handler(args []string, options map[string]string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "ERROR: expected exactly one input .c file, use --help")
		return 1
	}
	input := args[0]

	source, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: cannot read %s: %s\n", input, err)
		return 1
	}

	cfg, err := config.Load(filepath.Dir(input))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		return 1
	}

	opts := compiler.Options{
		Stage:  stageFromOptions(options),
		Debug:  has(options, "debug"),
		Config: cfg,
	}

	res, err := compiler.Compile(string(source), opts)
	if opts.Debug && res.Debug != "" {
		fmt.Print(res.Debug)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		return compiler.ExitCode(err)
	}

	// --lex/--parse/--validate/--tacky/--codegen stop before any .s text
	// exists; only StageAll and the explicit -s flag produce one.
	wantsFile := opts.Stage == compiler.StageAll
	if !wantsFile {
		return 0
	}

	outPath := strings.TrimSuffix(input, filepath.Ext(input)) + ".s"
	if err := os.WriteFile(outPath, []byte(res.Text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: cannot write %s: %s\n", outPath, err)
		return 1
	}

	if has(options, "s") {
		return 0
	}

	// Invoking the system assembler/linker is an external collaborator
	// (spec.md §1 Non-goals): print the equivalent command rather than
	// shelling out to it.
	binPath := strings.TrimSuffix(outPath, ".s")
	fmt.Printf("Wrote %s — link with:\n  gcc %s -o %s\n", outPath, outPath, binPath)
	return 0
}

func main() {
	os.Exit(app.Run(os.Args, os.Stdout))
}
