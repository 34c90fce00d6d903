// Package ccerr defines the typed error taxonomy shared by every stage of
// the pipeline: lexer, parser, semantic analyzer and code generator all
// return one of these kinds rather than an ad-hoc string, so the CLI can
// report "first error wins" with a stable exit code and message shape.
package ccerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Pos is a 1-based line/column into the source file being compiled.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// LexicalError means no token rule in the lexer matched the remaining
// input at Pos.
type LexicalError struct {
	Pos     Pos
	Snippet string
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("%s: lexical error: unrecognized input %q", e.Pos, e.Snippet)
}

// ParseError means the token stream didn't match the grammar: Got was seen
// where Expected was required.
type ParseError struct {
	Pos      Pos
	Expected string
	Got      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: expected %s, got %s", e.Pos, e.Expected, e.Got)
}

// SemanticErrorKind enumerates every semantic-analysis failure mode named
// in spec.md §7.
type SemanticErrorKind int

const (
	UndeclaredVariable SemanticErrorKind = iota
	DuplicateDeclaration
	InvalidLvalue
	InvalidIncrDecr
	BreakOutsideLoop
	ContinueOutsideLoop
	DuplicateCase
	DuplicateDefault
	CaseOutsideSwitch
	DefaultOutsideSwitch
	LabelRedeclared
	UndefinedGotoTarget
	CallArityMismatch
	VariableUsedAsFunction
	FunctionUsedAsVariable
	FunctionRedefinition
)

func (k SemanticErrorKind) String() string {
	switch k {
	case UndeclaredVariable:
		return "undeclared variable"
	case DuplicateDeclaration:
		return "duplicate declaration"
	case InvalidLvalue:
		return "invalid lvalue"
	case InvalidIncrDecr:
		return "invalid increment/decrement operand"
	case BreakOutsideLoop:
		return "break outside loop or switch"
	case ContinueOutsideLoop:
		return "continue outside loop"
	case DuplicateCase:
		return "duplicate case value"
	case DuplicateDefault:
		return "duplicate default label"
	case CaseOutsideSwitch:
		return "case outside switch"
	case DefaultOutsideSwitch:
		return "default outside switch"
	case LabelRedeclared:
		return "label redeclared"
	case UndefinedGotoTarget:
		return "goto to undefined label"
	case CallArityMismatch:
		return "call with wrong number of arguments"
	case VariableUsedAsFunction:
		return "variable used as function"
	case FunctionUsedAsVariable:
		return "function used as variable"
	case FunctionRedefinition:
		return "function redefined"
	default:
		return "unknown semantic error"
	}
}

// SemanticError is raised by the resolver, the type checker, or the
// control-flow labeller. Detail carries the offending identifier/value.
type SemanticError struct {
	Kind   SemanticErrorKind
	Pos    Pos
	Detail string
}

func (e *SemanticError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Detail)
}

// CodegenInvariantError marks a shape in the IR that a passing semantic
// analysis should have made impossible. The asm lowering pass reports
// such shapes by panicking and does not construct this error.
type CodegenInvariantError struct {
	Detail string
}

func (e *CodegenInvariantError) Error() string {
	return fmt.Sprintf("codegen invariant violated: %s", e.Detail)
}

// Wrap attaches stage context to err without discarding its type: callers
// that need to inspect the underlying *SemanticError etc. should use
// errors.As, which works through github.com/pkg/errors's wrapping.
func Wrap(err error, stage string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, stage)
}
