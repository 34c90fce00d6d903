package sema

import "subc/ast"

// Analyze runs the full semantic analysis pipeline over prog in order:
// identifier resolution, type checking, then control-flow labelling.
// Each pass assumes the previous one succeeded; the returned SymbolTable
// is the function table built during resolution, reused by tacky/asm for
// declared-arity bookkeeping.
func Analyze(prog *ast.Program) (*SymbolTable, error) {
	funcs := NewSymbolTable()

	if err := ResolveIdentifiers(prog, funcs); err != nil {
		return nil, err
	}
	if err := TypeCheck(prog, funcs); err != nil {
		return nil, err
	}
	if err := LabelControlFlow(prog); err != nil {
		return nil, err
	}
	return funcs, nil
}
