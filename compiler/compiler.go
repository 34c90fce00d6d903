// Package compiler orchestrates the pipeline stages — lexer, parser, sema,
// tacky, asm, emit — the way falcon's compile.CompileTheWorld and compileY
// stage the same six-step flow, but with explicit stop-early flags instead
// of always running to a linked binary (spec.md §6: invoking the system
// assembler/linker is an external collaborator, out of scope here).
package compiler

import (
	"fmt"
	"strings"

	"subc/asm"
	"subc/ast"
	"subc/ccerr"
	"subc/config"
	"subc/emit"
	"subc/sema"
	"subc/tacky"
)

// Stage names the point at which the pipeline should stop.
type Stage int

const (
	StageAll      Stage = iota // run every stage, emit .s text
	StageLex                   // stop after lexing
	StageParse                 // stop after parsing
	StageValidate              // stop after semantic analysis
	StageTacky                 // stop after IR generation
	StageCodegen               // stop after code generation; no file written
)

// Options controls one compilation run; it mirrors spec.md §6's CLI flags
// plus the file-derived config.Config knobs.
type Options struct {
	Stage  Stage
	Debug  bool
	Config config.Config
}

// Result carries every stage's output that was actually produced, so the
// CLI (or a test) can inspect intermediate state regardless of where the
// pipeline stopped.
type Result struct {
	Tokens  []ast.Token
	AST     *ast.Program
	Funcs   *sema.SymbolTable
	Tacky   *tacky.Program
	Asm     *asm.Program
	Text    string // emitted .s text, only set when the pipeline reaches emit
	Debug   string // concatenation of every stage dump that ran, in pipeline order
}

// Compile runs source through as many stages as opts.Stage allows, stopping
// and returning early at the requested point. It implements spec.md's
// single-error, fail-fast policy: the first stage error aborts the run.
func Compile(source string, opts Options) (*Result, error) {
	res := &Result{}
	var debug strings.Builder

	lexer := ast.NewLexer(source)
	tokens, err := lexer.Lex()
	if err != nil {
		return res, ccerr.Wrap(err, "lex")
	}
	res.Tokens = tokens
	if opts.Debug {
		fmt.Fprintf(&debug, "== Tokens ==\n%s\n", ast.DumpTokens(tokens))
	}
	if opts.Stage == StageLex {
		res.Debug = debug.String()
		return res, nil
	}

	parser := ast.NewParser(tokens)
	prog, err := parser.Parse()
	if err != nil {
		return res, ccerr.Wrap(err, "parse")
	}
	res.AST = prog
	if opts.Debug {
		fmt.Fprintf(&debug, "== AST ==\n%s\n", ast.Dump(prog))
	}
	if opts.Stage == StageParse {
		res.Debug = debug.String()
		return res, nil
	}

	funcs, err := sema.Analyze(prog)
	if err != nil {
		return res, ccerr.Wrap(err, "sema")
	}
	res.Funcs = funcs
	if opts.Stage == StageValidate {
		res.Debug = debug.String()
		return res, nil
	}

	tackyProg := tacky.Generate(prog, funcs)
	res.Tacky = tackyProg
	if opts.Debug {
		fmt.Fprintf(&debug, "== Tacky ==\n%s\n", tacky.Dump(tackyProg))
	}
	if opts.Stage == StageTacky {
		res.Debug = debug.String()
		return res, nil
	}

	asmProg := asm.Lower(tackyProg)
	asm.Legalize(asmProg, opts.Config)
	res.Asm = asmProg
	if opts.Debug {
		fmt.Fprintf(&debug, "== Assembly ==\n%s\n", asm.Dump(asmProg))
	}
	if opts.Stage == StageCodegen {
		res.Debug = debug.String()
		return res, nil
	}

	res.Text = emit.Emit(asmProg, emit.Options{CommentInstructions: opts.Config.Emit.CommentInstructions})
	res.Debug = debug.String()
	return res, nil
}

// ExitCode maps a Compile error to the process exit code spec.md §6
// requires: 0 on success, non-zero (1) on any lexer/parser/semantic error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
