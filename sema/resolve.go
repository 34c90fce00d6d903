package sema

import (
	"fmt"

	"subc/ast"
	"subc/ccerr"
)

// scopeEntry tracks one identifier's resolved name and whether it was
// declared in the *current* block (duplicate-declaration checks only
// fire within the same block) and whether it has function linkage
// (functions may be redeclared across blocks; variables may not).
type scopeEntry struct {
	resolvedName  string
	fromThisScope bool
	hasLinkage    bool
}

// resolver performs identifier resolution: every VarExpr/VarDecl/Param
// name is rewritten in place to a globally unique name, and every
// variable/function reference is checked against the declarations
// visible at that point.
type resolver struct {
	scopes  []map[string]*scopeEntry // innermost last
	counter int
	funcs   *SymbolTable
}

func newResolver(funcs *SymbolTable) *resolver {
	return &resolver{scopes: []map[string]*scopeEntry{{}}, funcs: funcs}
}

func (r *resolver) uniqueName(base string) string {
	r.counter++
	return fmt.Sprintf("%s.%d", base, r.counter)
}

func (r *resolver) pushScope() {
	next := make(map[string]*scopeEntry, len(r.top()))
	for k, v := range r.top() {
		cp := *v
		cp.fromThisScope = false
		next[k] = &cp
	}
	r.scopes = append(r.scopes, next)
}

func (r *resolver) popScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *resolver) top() map[string]*scopeEntry {
	return r.scopes[len(r.scopes)-1]
}

func (r *resolver) declareVar(pos ccerr.Pos, name string) (string, error) {
	if existing, ok := r.top()[name]; ok && existing.fromThisScope && !existing.hasLinkage {
		return "", &ccerr.SemanticError{Kind: ccerr.DuplicateDeclaration, Pos: pos, Detail: name}
	}
	resolved := r.uniqueName(name)
	r.top()[name] = &scopeEntry{resolvedName: resolved, fromThisScope: true, hasLinkage: false}
	// Register the variable in the same global symbol table functions
	// live in (under its resolved, globally-unique name) so that typecheck's
	// CallExpr handling can tell "calling a variable" apart from "calling
	// an undeclared name" (see ccerr.VariableUsedAsFunction).
	r.funcs.Declare(resolved, IntType{})
	return resolved, nil
}

// declareFunc declares a function name at file scope (or as a nested
// prototype); functions keep their source name verbatim (they have
// external linkage and are called by that name from emitted assembly) and
// may be redeclared, unlike block-scoped variables.
func (r *resolver) declareFunc(pos ccerr.Pos, name string, hasBody bool, existingBody bool) error {
	if existing, ok := r.top()[name]; ok && existing.fromThisScope && !existing.hasLinkage {
		return &ccerr.SemanticError{Kind: ccerr.DuplicateDeclaration, Pos: pos, Detail: name}
	}
	if hasBody && existingBody {
		return &ccerr.SemanticError{Kind: ccerr.FunctionRedefinition, Pos: pos, Detail: name}
	}
	r.top()[name] = &scopeEntry{resolvedName: name, fromThisScope: true, hasLinkage: true}
	return nil
}

func (r *resolver) resolveVar(pos ccerr.Pos, name string) (string, error) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if e, ok := r.scopes[i][name]; ok {
			return e.resolvedName, nil
		}
	}
	return "", &ccerr.SemanticError{Kind: ccerr.UndeclaredVariable, Pos: pos, Detail: name}
}

// ResolveIdentifiers runs the identifier-resolution pass over the whole
// program: renames every local variable to a unique name and rewrites
// every ast.VarExpr/ast.CallExpr reference to match.
func ResolveIdentifiers(prog *ast.Program, funcs *SymbolTable) error {
	r := newResolver(funcs)
	bodies := map[string]bool{}
	for _, fn := range prog.Functions {
		bodies[fn.Name] = bodies[fn.Name] || fn.Body != nil
	}
	for _, fn := range prog.Functions {
		hasBody := fn.Body != nil
		if err := r.declareFunc(fn.Pos, fn.Name, hasBody, bodies[fn.Name] && existsAnotherBody(prog, fn)); err != nil {
			return err
		}
		funcs.Declare(fn.Name, FuncType{Arity: len(fn.Params), Defined: bodies[fn.Name]})
		if err := r.resolveFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// existsAnotherBody reports whether some *other* declaration of fn.Name
// already carries a body, used only to flag the second of two full
// definitions as a redefinition rather than the first.
func existsAnotherBody(prog *ast.Program, fn *ast.FuncDecl) bool {
	seenSelf := false
	for _, other := range prog.Functions {
		if other == fn {
			seenSelf = true
			continue
		}
		if other.Name == fn.Name && other.Body != nil && !seenSelf {
			return true
		}
	}
	return false
}

func (r *resolver) resolveFunction(fn *ast.FuncDecl) error {
	if fn.Body == nil {
		return nil
	}
	r.pushScope()
	defer r.popScope()

	for i := range fn.Params {
		resolved, err := r.declareVar(fn.Params[i].Pos, fn.Params[i].Name)
		if err != nil {
			return err
		}
		fn.Params[i].Name = resolved
	}
	return r.resolveBlock(fn.Body)
}

func (r *resolver) resolveBlock(blk *ast.Block) error {
	for _, item := range blk.Items {
		switch v := item.(type) {
		case *ast.VarDecl:
			if err := r.resolveVarDecl(v); err != nil {
				return err
			}
		case *ast.FuncDecl:
			if v.Body != nil {
				return &ccerr.SemanticError{Kind: ccerr.FunctionRedefinition, Pos: v.Pos, Detail: v.Name + " (nested function definitions are not allowed)"}
			}
			if err := r.declareFunc(v.Pos, v.Name, false, false); err != nil {
				return err
			}
		case ast.Stmt:
			if err := r.resolveStmt(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *resolver) resolveVarDecl(d *ast.VarDecl) error {
	if d.Init != nil {
		if err := r.resolveExpr(d.Init); err != nil {
			return err
		}
	}
	resolved, err := r.declareVar(d.Pos, d.Name)
	if err != nil {
		return err
	}
	d.Name = resolved
	return nil
}

func (r *resolver) resolveStmt(s ast.Stmt) error {
	switch v := s.(type) {
	case *ast.ReturnStmt:
		return r.resolveExpr(v.Expr)
	case *ast.ExprStmt:
		return r.resolveExpr(v.Expr)
	case *ast.NullStmt:
		return nil
	case *ast.IfStmt:
		if err := r.resolveExpr(v.Cond); err != nil {
			return err
		}
		if err := r.resolveStmt(v.Then); err != nil {
			return err
		}
		if v.Else != nil {
			return r.resolveStmt(v.Else)
		}
		return nil
	case *ast.CompoundStmt:
		r.pushScope()
		defer r.popScope()
		return r.resolveBlock(v.Block)
	case *ast.WhileStmt:
		if err := r.resolveExpr(v.Cond); err != nil {
			return err
		}
		return r.resolveStmt(v.Body)
	case *ast.DoWhileStmt:
		if err := r.resolveStmt(v.Body); err != nil {
			return err
		}
		return r.resolveExpr(v.Cond)
	case *ast.ForStmt:
		r.pushScope()
		defer r.popScope()
		if v.Init != nil {
			if v.Init.Decl != nil {
				if err := r.resolveVarDecl(v.Init.Decl); err != nil {
					return err
				}
			} else if v.Init.Expr != nil {
				if err := r.resolveExpr(v.Init.Expr); err != nil {
					return err
				}
			}
		}
		if v.Cond != nil {
			if err := r.resolveExpr(v.Cond); err != nil {
				return err
			}
		}
		if v.Post != nil {
			if err := r.resolveExpr(v.Post); err != nil {
				return err
			}
		}
		return r.resolveStmt(v.Body)
	case *ast.BreakStmt, *ast.ContinueStmt, *ast.GotoStmt:
		return nil
	case *ast.SwitchStmt:
		if err := r.resolveExpr(v.Cond); err != nil {
			return err
		}
		return r.resolveStmt(v.Body)
	case *ast.CaseStmt:
		if err := r.resolveExpr(v.Const); err != nil {
			return err
		}
		if v.Body != nil {
			return r.resolveStmt(v.Body)
		}
		return nil
	case *ast.DefaultStmt:
		if v.Body != nil {
			return r.resolveStmt(v.Body)
		}
		return nil
	case *ast.LabeledStmt:
		return r.resolveStmt(v.Stmt)
	default:
		return nil
	}
}

func (r *resolver) resolveExpr(e ast.Expr) error {
	switch v := e.(type) {
	case nil:
		return nil
	case *ast.ConstantExpr:
		return nil
	case *ast.VarExpr:
		resolved, err := r.resolveVar(v.Pos, v.Name)
		if err != nil {
			return err
		}
		v.Name = resolved
		return nil
	case *ast.UnaryExpr:
		if err := validateLvalueForIncrDecr(v); err != nil {
			return err
		}
		return r.resolveExpr(v.Operand)
	case *ast.BinaryExpr:
		if err := r.resolveExpr(v.Left); err != nil {
			return err
		}
		return r.resolveExpr(v.Right)
	case *ast.AssignmentExpr:
		if _, ok := v.LValue.(*ast.VarExpr); !ok {
			return &ccerr.SemanticError{Kind: ccerr.InvalidLvalue, Pos: v.Pos}
		}
		if err := r.resolveExpr(v.LValue); err != nil {
			return err
		}
		return r.resolveExpr(v.RValue)
	case *ast.ConditionalExpr:
		if err := r.resolveExpr(v.Cond); err != nil {
			return err
		}
		if err := r.resolveExpr(v.Then); err != nil {
			return err
		}
		return r.resolveExpr(v.Else)
	case *ast.CallExpr:
		resolved, err := r.resolveVar(v.Pos, v.Name)
		if err != nil {
			return err
		}
		v.Name = resolved
		for _, a := range v.Args {
			if err := r.resolveExpr(a); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func validateLvalueForIncrDecr(u *ast.UnaryExpr) error {
	switch u.Op {
	case ast.PreIncrement, ast.PreDecrement, ast.PostIncrement, ast.PostDecrement:
		if _, ok := u.Operand.(*ast.VarExpr); !ok {
			return &ccerr.SemanticError{Kind: ccerr.InvalidIncrDecr, Pos: u.Pos}
		}
	}
	return nil
}
