package sema

import (
	"subc/ast"
	"subc/ccerr"
)

// TypeCheck walks the already-resolved program and checks the handful of
// invariants the one-type (int) subset still has: call arity, and that a
// name is never used as both a variable and a function. Plain int typing
// needs no unification — every expression is int — so this pass is
// intentionally thin next to the resolver.
func TypeCheck(prog *ast.Program, funcs *SymbolTable) error {
	for _, fn := range prog.Functions {
		if fn.Body == nil {
			continue
		}
		if err := typecheckBlock(fn.Body, funcs); err != nil {
			return err
		}
	}
	return nil
}

func typecheckBlock(blk *ast.Block, funcs *SymbolTable) error {
	for _, item := range blk.Items {
		switch v := item.(type) {
		case *ast.VarDecl:
			if v.Init != nil {
				if err := typecheckExpr(v.Init, funcs); err != nil {
					return err
				}
			}
		case *ast.FuncDecl:
			// Nested prototypes carry no body to check.
		case ast.Stmt:
			if err := typecheckStmt(v, funcs); err != nil {
				return err
			}
		}
	}
	return nil
}

func typecheckStmt(s ast.Stmt, funcs *SymbolTable) error {
	switch v := s.(type) {
	case *ast.ReturnStmt:
		return typecheckExpr(v.Expr, funcs)
	case *ast.ExprStmt:
		return typecheckExpr(v.Expr, funcs)
	case *ast.NullStmt:
		return nil
	case *ast.IfStmt:
		if err := typecheckExpr(v.Cond, funcs); err != nil {
			return err
		}
		if err := typecheckStmt(v.Then, funcs); err != nil {
			return err
		}
		if v.Else != nil {
			return typecheckStmt(v.Else, funcs)
		}
		return nil
	case *ast.CompoundStmt:
		return typecheckBlock(v.Block, funcs)
	case *ast.WhileStmt:
		if err := typecheckExpr(v.Cond, funcs); err != nil {
			return err
		}
		return typecheckStmt(v.Body, funcs)
	case *ast.DoWhileStmt:
		if err := typecheckStmt(v.Body, funcs); err != nil {
			return err
		}
		return typecheckExpr(v.Cond, funcs)
	case *ast.ForStmt:
		if v.Init != nil {
			if v.Init.Decl != nil && v.Init.Decl.Init != nil {
				if err := typecheckExpr(v.Init.Decl.Init, funcs); err != nil {
					return err
				}
			} else if v.Init.Expr != nil {
				if err := typecheckExpr(v.Init.Expr, funcs); err != nil {
					return err
				}
			}
		}
		if v.Cond != nil {
			if err := typecheckExpr(v.Cond, funcs); err != nil {
				return err
			}
		}
		if v.Post != nil {
			if err := typecheckExpr(v.Post, funcs); err != nil {
				return err
			}
		}
		return typecheckStmt(v.Body, funcs)
	case *ast.SwitchStmt:
		if err := typecheckExpr(v.Cond, funcs); err != nil {
			return err
		}
		return typecheckStmt(v.Body, funcs)
	case *ast.CaseStmt:
		if v.Body != nil {
			return typecheckStmt(v.Body, funcs)
		}
		return nil
	case *ast.DefaultStmt:
		if v.Body != nil {
			return typecheckStmt(v.Body, funcs)
		}
		return nil
	case *ast.LabeledStmt:
		return typecheckStmt(v.Stmt, funcs)
	default:
		return nil
	}
}

func typecheckExpr(e ast.Expr, funcs *SymbolTable) error {
	switch v := e.(type) {
	case nil, *ast.ConstantExpr:
		return nil
	case *ast.VarExpr:
		if sym, ok := funcs.Lookup(v.Name); ok {
			if _, isFunc := sym.Type.(FuncType); isFunc {
				return &ccerr.SemanticError{Kind: ccerr.FunctionUsedAsVariable, Pos: v.Pos, Detail: v.Name}
			}
		}
		return nil
	case *ast.UnaryExpr:
		return typecheckExpr(v.Operand, funcs)
	case *ast.BinaryExpr:
		if err := typecheckExpr(v.Left, funcs); err != nil {
			return err
		}
		return typecheckExpr(v.Right, funcs)
	case *ast.AssignmentExpr:
		if err := typecheckExpr(v.LValue, funcs); err != nil {
			return err
		}
		return typecheckExpr(v.RValue, funcs)
	case *ast.ConditionalExpr:
		if err := typecheckExpr(v.Cond, funcs); err != nil {
			return err
		}
		if err := typecheckExpr(v.Then, funcs); err != nil {
			return err
		}
		return typecheckExpr(v.Else, funcs)
	case *ast.CallExpr:
		sym, ok := funcs.Lookup(v.Name)
		if !ok {
			return &ccerr.SemanticError{Kind: ccerr.UndeclaredVariable, Pos: v.Pos, Detail: v.Name}
		}
		ft, isFunc := sym.Type.(FuncType)
		if !isFunc {
			return &ccerr.SemanticError{Kind: ccerr.VariableUsedAsFunction, Pos: v.Pos, Detail: v.Name}
		}
		if ft.Arity != len(v.Args) {
			return &ccerr.SemanticError{Kind: ccerr.CallArityMismatch, Pos: v.Pos, Detail: v.Name}
		}
		for _, a := range v.Args {
			if err := typecheckExpr(a, funcs); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
