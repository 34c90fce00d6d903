package sema

import (
	"fmt"

	"subc/ast"
	"subc/ccerr"
)

// switchFrame tracks one enclosing switch during the walk: the case values
// and default seen so far (for duplicate checks), plus the node whose
// CaseTargets/DefaultTarget are filled in directly as case/default
// statements are visited (see DESIGN.md open question 2 — this is a
// derived cache, not a second source of truth, built in one pass over Body).
type switchFrame struct {
	node       *ast.SwitchStmt
	caseValues map[int64]bool
	hasDefault bool
}

type labeller struct {
	funcName string
	counter  *int // shared across every function: emitted labels are global assembly symbols

	breakLabels    []string // nearest enclosing loop-or-switch, for break
	continueLabels []string // nearest enclosing loop, for continue
	switches       []*switchFrame

	declaredLabels map[string]string // source label -> resolved (function-qualified) label
	gotos          []*ast.GotoStmt
}

func newLabeller(funcName string, counter *int) *labeller {
	return &labeller{funcName: funcName, counter: counter, declaredLabels: map[string]string{}}
}

// fresh mints a synthetic label, globally unique across the whole program
// (loops/switches/cases in different functions must not collide once
// flattened into one .s file's global label namespace).
func (l *labeller) fresh(prefix string) string {
	*l.counter++
	return fmt.Sprintf("%s.%s.%d", l.funcName, prefix, *l.counter)
}

// LabelControlFlow runs the control-flow labelling pass over the whole
// program: assigns synthetic labels to loops/switches, validates
// break/continue/goto/case/default placement, and fills in each Switch's
// CaseTargets/DefaultTarget cache.
func LabelControlFlow(prog *ast.Program) error {
	counter := 0
	for _, fn := range prog.Functions {
		if fn.Body == nil {
			continue
		}
		l := newLabeller(fn.Name, &counter)
		if err := l.labelBlock(fn.Body); err != nil {
			return err
		}
		for _, g := range l.gotos {
			resolved, ok := l.declaredLabels[g.Label]
			if !ok {
				return &ccerr.SemanticError{Kind: ccerr.UndefinedGotoTarget, Pos: g.Pos, Detail: g.Label}
			}
			g.Label = resolved
		}
	}
	return nil
}

func (l *labeller) labelBlock(blk *ast.Block) error {
	for _, item := range blk.Items {
		if s, ok := item.(ast.Stmt); ok {
			if err := l.labelStmt(s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *labeller) labelStmt(s ast.Stmt) error {
	switch v := s.(type) {
	case *ast.IfStmt:
		if err := l.labelStmt(v.Then); err != nil {
			return err
		}
		if v.Else != nil {
			return l.labelStmt(v.Else)
		}
		return nil
	case *ast.CompoundStmt:
		return l.labelBlock(v.Block)
	case *ast.WhileStmt:
		v.Label = l.fresh("while")
		l.breakLabels = append(l.breakLabels, v.Label)
		l.continueLabels = append(l.continueLabels, v.Label)
		err := l.labelStmt(v.Body)
		l.breakLabels = l.breakLabels[:len(l.breakLabels)-1]
		l.continueLabels = l.continueLabels[:len(l.continueLabels)-1]
		return err
	case *ast.DoWhileStmt:
		v.Label = l.fresh("dowhile")
		l.breakLabels = append(l.breakLabels, v.Label)
		l.continueLabels = append(l.continueLabels, v.Label)
		err := l.labelStmt(v.Body)
		l.breakLabels = l.breakLabels[:len(l.breakLabels)-1]
		l.continueLabels = l.continueLabels[:len(l.continueLabels)-1]
		return err
	case *ast.ForStmt:
		v.Label = l.fresh("for")
		l.breakLabels = append(l.breakLabels, v.Label)
		l.continueLabels = append(l.continueLabels, v.Label)
		err := l.labelStmt(v.Body)
		l.breakLabels = l.breakLabels[:len(l.breakLabels)-1]
		l.continueLabels = l.continueLabels[:len(l.continueLabels)-1]
		return err
	case *ast.BreakStmt:
		if len(l.breakLabels) == 0 {
			return &ccerr.SemanticError{Kind: ccerr.BreakOutsideLoop, Pos: v.Pos}
		}
		v.Label = l.breakLabels[len(l.breakLabels)-1]
		return nil
	case *ast.ContinueStmt:
		if len(l.continueLabels) == 0 {
			return &ccerr.SemanticError{Kind: ccerr.ContinueOutsideLoop, Pos: v.Pos}
		}
		v.Label = l.continueLabels[len(l.continueLabels)-1]
		return nil
	case *ast.SwitchStmt:
		v.Label = l.fresh("switch")
		frame := &switchFrame{node: v, caseValues: map[int64]bool{}}
		l.breakLabels = append(l.breakLabels, v.Label)
		l.switches = append(l.switches, frame)
		err := l.labelStmt(v.Body)
		l.switches = l.switches[:len(l.switches)-1]
		l.breakLabels = l.breakLabels[:len(l.breakLabels)-1]
		return err
	case *ast.CaseStmt:
		if len(l.switches) == 0 {
			return &ccerr.SemanticError{Kind: ccerr.CaseOutsideSwitch, Pos: v.Pos}
		}
		frame := l.switches[len(l.switches)-1]
		c, ok := v.Const.(*ast.ConstantExpr)
		if !ok {
			return &ccerr.SemanticError{Kind: ccerr.CaseOutsideSwitch, Pos: v.Pos, Detail: "case label must be a constant expression"}
		}
		if frame.caseValues[c.Value] {
			return &ccerr.SemanticError{Kind: ccerr.DuplicateCase, Pos: v.Pos, Detail: fmt.Sprintf("%d", c.Value)}
		}
		frame.caseValues[c.Value] = true
		v.Label = l.fresh(fmt.Sprintf("%s.case", frame.node.Label))
		frame.node.CaseTargets = append(frame.node.CaseTargets, ast.CaseTarget{Value: c.Value, Label: v.Label})
		if v.Body != nil {
			return l.labelStmt(v.Body)
		}
		return nil
	case *ast.DefaultStmt:
		if len(l.switches) == 0 {
			return &ccerr.SemanticError{Kind: ccerr.DefaultOutsideSwitch, Pos: v.Pos}
		}
		frame := l.switches[len(l.switches)-1]
		if frame.hasDefault {
			return &ccerr.SemanticError{Kind: ccerr.DuplicateDefault, Pos: v.Pos}
		}
		frame.hasDefault = true
		v.Label = l.fresh(fmt.Sprintf("%s.default", frame.node.Label))
		frame.node.DefaultTarget = v.Label
		if v.Body != nil {
			return l.labelStmt(v.Body)
		}
		return nil
	case *ast.GotoStmt:
		l.gotos = append(l.gotos, v)
		return nil
	case *ast.LabeledStmt:
		if _, dup := l.declaredLabels[v.Label]; dup {
			return &ccerr.SemanticError{Kind: ccerr.LabelRedeclared, Pos: v.Pos, Detail: v.Label}
		}
		resolved := fmt.Sprintf("%s.label.%s", l.funcName, v.Label)
		l.declaredLabels[v.Label] = resolved
		v.Label = resolved
		return l.labelStmt(v.Stmt)
	default:
		return nil
	}
}
