package tacky

import (
	"fmt"

	"subc/ast"
	"subc/sema"
)

// generator lowers one function at a time; tmpCounter/labelCounter are
// shared across the whole program (via Generate) so every temporary and
// synthetic label is globally unique in the emitted instruction stream.
type generator struct {
	tmpCounter   *int
	labelCounter *int
	body         []Instruction
	funcs        *sema.SymbolTable
}

// Generate lowers a fully-analyzed Program into its tacky form. funcs is
// the symbol table sema.Analyze returned for prog: it tells genCall
// whether a callee is defined locally or only declared (FuncType.Defined),
// which decides whether the call needs a PLT-indirected target once it
// reaches asm/emit. Functions with no body (declaration-only prototypes)
// are skipped: they contribute nothing to codegen.
func Generate(prog *ast.Program, funcs *sema.SymbolTable) *Program {
	tmpCounter, labelCounter := 0, 0
	out := &Program{}
	for _, fn := range prog.Functions {
		if fn.Body == nil {
			continue
		}
		g := &generator{tmpCounter: &tmpCounter, labelCounter: &labelCounter, funcs: funcs}
		out.Functions = append(out.Functions, g.genFunction(fn))
	}
	return out
}

func (g *generator) emit(i Instruction) {
	g.body = append(g.body, i)
}

func (g *generator) freshTmp() Var {
	*g.tmpCounter++
	return Var{Name: fmt.Sprintf("tmp.%d", *g.tmpCounter)}
}

func (g *generator) freshLabel(prefix string) string {
	*g.labelCounter++
	return fmt.Sprintf("%s.%d", prefix, *g.labelCounter)
}

func (g *generator) genFunction(fn *ast.FuncDecl) *Function {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name
	}
	g.genBlock(fn.Body)
	// A C function falling off its closing brace without a return
	// statement has undefined behavior for callers that use the result;
	// subc guarantees a well-formed epilogue regardless by always ending
	// the instruction stream with a Return(0).
	g.emit(ReturnInstr{Val: Constant{Value: 0}})
	return &Function{Name: fn.Name, Params: params, Body: g.body}
}

func (g *generator) genBlock(blk *ast.Block) {
	for _, item := range blk.Items {
		switch v := item.(type) {
		case *ast.VarDecl:
			g.genVarDecl(v)
		case *ast.FuncDecl:
			// Nested prototype: nothing to lower.
		case ast.Stmt:
			g.genStmt(v)
		}
	}
}

func (g *generator) genVarDecl(d *ast.VarDecl) {
	if d.Init == nil {
		return
	}
	val := g.genExpr(d.Init)
	g.emit(CopyInstr{Src: val, Dst: Var{Name: d.Name}})
}

func (g *generator) genStmt(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.ReturnStmt:
		val := g.genExpr(v.Expr)
		g.emit(ReturnInstr{Val: val})
	case *ast.ExprStmt:
		g.genExpr(v.Expr)
	case *ast.NullStmt:
		// no-op
	case *ast.CompoundStmt:
		g.genBlock(v.Block)
	case *ast.IfStmt:
		g.genIf(v)
	case *ast.WhileStmt:
		g.genWhile(v)
	case *ast.DoWhileStmt:
		g.genDoWhile(v)
	case *ast.ForStmt:
		g.genFor(v)
	case *ast.BreakStmt:
		g.emit(JumpInstr{Target: breakLabel(v.Label)})
	case *ast.ContinueStmt:
		g.emit(JumpInstr{Target: continueLabel(v.Label)})
	case *ast.SwitchStmt:
		g.genSwitch(v)
	case *ast.CaseStmt:
		g.emit(LabelInstr{Name: v.Label})
		if v.Body != nil {
			g.genStmt(v.Body)
		}
	case *ast.DefaultStmt:
		g.emit(LabelInstr{Name: v.Label})
		if v.Body != nil {
			g.genStmt(v.Body)
		}
	case *ast.GotoStmt:
		g.emit(JumpInstr{Target: v.Label})
	case *ast.LabeledStmt:
		g.emit(LabelInstr{Name: v.Label})
		g.genStmt(v.Stmt)
	default:
		panic(fmt.Sprintf("tacky: unhandled statement %T", s))
	}
}

// breakLabel/continueLabel derive the jump targets for the loop/switch
// labelled `label` by sema's control-flow pass. Every loop construct and
// switch gets both prefixes even though a switch only ever uses break.
func breakLabel(label string) string    { return "break_" + label }
func continueLabel(label string) string { return "continue_" + label }

func (g *generator) genIf(s *ast.IfStmt) {
	cond := g.genExpr(s.Cond)
	if s.Else == nil {
		endLabel := g.freshLabel("if_end")
		g.emit(JumpIfZeroInstr{Cond: cond, Target: endLabel})
		g.genStmt(s.Then)
		g.emit(LabelInstr{Name: endLabel})
		return
	}
	elseLabel := g.freshLabel("if_else")
	endLabel := g.freshLabel("if_end")
	g.emit(JumpIfZeroInstr{Cond: cond, Target: elseLabel})
	g.genStmt(s.Then)
	g.emit(JumpInstr{Target: endLabel})
	g.emit(LabelInstr{Name: elseLabel})
	g.genStmt(s.Else)
	g.emit(LabelInstr{Name: endLabel})
}

func (g *generator) genWhile(s *ast.WhileStmt) {
	cont := continueLabel(s.Label)
	brk := breakLabel(s.Label)
	g.emit(LabelInstr{Name: cont})
	cond := g.genExpr(s.Cond)
	g.emit(JumpIfZeroInstr{Cond: cond, Target: brk})
	g.genStmt(s.Body)
	g.emit(JumpInstr{Target: cont})
	g.emit(LabelInstr{Name: brk})
}

func (g *generator) genDoWhile(s *ast.DoWhileStmt) {
	start := "start_" + s.Label
	cont := continueLabel(s.Label)
	brk := breakLabel(s.Label)
	g.emit(LabelInstr{Name: start})
	g.genStmt(s.Body)
	g.emit(LabelInstr{Name: cont})
	cond := g.genExpr(s.Cond)
	g.emit(JumpIfNotZeroInstr{Cond: cond, Target: start})
	g.emit(LabelInstr{Name: brk})
}

func (g *generator) genFor(s *ast.ForStmt) {
	if s.Init != nil {
		if s.Init.Decl != nil {
			g.genVarDecl(s.Init.Decl)
		} else if s.Init.Expr != nil {
			g.genExpr(s.Init.Expr)
		}
	}
	start := "start_" + s.Label
	cont := continueLabel(s.Label)
	brk := breakLabel(s.Label)
	g.emit(LabelInstr{Name: start})
	if s.Cond != nil {
		cond := g.genExpr(s.Cond)
		g.emit(JumpIfZeroInstr{Cond: cond, Target: brk})
	}
	g.genStmt(s.Body)
	g.emit(LabelInstr{Name: cont})
	if s.Post != nil {
		g.genExpr(s.Post)
	}
	g.emit(JumpInstr{Target: start})
	g.emit(LabelInstr{Name: brk})
}

func (g *generator) genSwitch(s *ast.SwitchStmt) {
	brk := breakLabel(s.Label)
	cond := g.genExpr(s.Cond)
	for _, ct := range s.CaseTargets {
		eq := g.freshTmp()
		g.emit(BinaryInstr{Op: Equal, Src1: cond, Src2: Constant{Value: ct.Value}, Dst: eq})
		g.emit(JumpIfNotZeroInstr{Cond: eq, Target: ct.Label})
	}
	if s.DefaultTarget != "" {
		g.emit(JumpInstr{Target: s.DefaultTarget})
	} else {
		g.emit(JumpInstr{Target: brk})
	}
	g.genStmt(s.Body)
	g.emit(LabelInstr{Name: brk})
}

// -----------------------------------------------------------------------------
// Expressions

func (g *generator) genExpr(e ast.Expr) Val {
	switch v := e.(type) {
	case *ast.ConstantExpr:
		return Constant{Value: v.Value}
	case *ast.VarExpr:
		return Var{Name: v.Name}
	case *ast.UnaryExpr:
		return g.genUnary(v)
	case *ast.BinaryExpr:
		return g.genBinary(v)
	case *ast.AssignmentExpr:
		return g.genAssignment(v)
	case *ast.ConditionalExpr:
		return g.genConditional(v)
	case *ast.CallExpr:
		return g.genCall(v)
	default:
		panic(fmt.Sprintf("tacky: unhandled expression %T", e))
	}
}

func (g *generator) genUnary(u *ast.UnaryExpr) Val {
	switch u.Op {
	case ast.Complement, ast.Negate, ast.Not:
		src := g.genExpr(u.Operand)
		dst := g.freshTmp()
		g.emit(UnaryInstr{Op: unaryOpOf(u.Op), Src: src, Dst: dst})
		return dst
	case ast.PreIncrement, ast.PreDecrement:
		target := u.Operand.(*ast.VarExpr)
		op := Add
		if u.Op == ast.PreDecrement {
			op = Subtract
		}
		dst := Var{Name: target.Name}
		g.emit(BinaryInstr{Op: op, Src1: dst, Src2: Constant{Value: 1}, Dst: dst})
		return dst
	case ast.PostIncrement, ast.PostDecrement:
		target := u.Operand.(*ast.VarExpr)
		old := g.freshTmp()
		g.emit(CopyInstr{Src: Var{Name: target.Name}, Dst: old})
		op := Add
		if u.Op == ast.PostDecrement {
			op = Subtract
		}
		dst := Var{Name: target.Name}
		g.emit(BinaryInstr{Op: op, Src1: dst, Src2: Constant{Value: 1}, Dst: dst})
		return old
	default:
		panic("tacky: unhandled unary operator")
	}
}

func unaryOpOf(op ast.UnaryOp) UnaryOp {
	switch op {
	case ast.Complement:
		return Complement
	case ast.Negate:
		return Negate
	case ast.Not:
		return Not
	default:
		panic("tacky: not a simple unary operator")
	}
}

func (g *generator) genBinary(b *ast.BinaryExpr) Val {
	switch b.Op {
	case ast.LogicalAnd:
		return g.genLogicalAnd(b)
	case ast.LogicalOr:
		return g.genLogicalOr(b)
	default:
		left := g.genExpr(b.Left)
		right := g.genExpr(b.Right)
		dst := g.freshTmp()
		g.emit(BinaryInstr{Op: binaryOpOf(b.Op, b.Arithmetic), Src1: left, Src2: right, Dst: dst})
		return dst
	}
}

func binaryOpOf(op ast.BinaryOp, arithmetic bool) BinaryOp {
	switch op {
	case ast.Add:
		return Add
	case ast.Subtract:
		return Subtract
	case ast.Multiply:
		return Multiply
	case ast.Divide:
		return Divide
	case ast.Remainder:
		return Remainder
	case ast.BitwiseAnd:
		return BitwiseAnd
	case ast.BitwiseOr:
		return BitwiseOr
	case ast.BitwiseXor:
		return BitwiseXor
	case ast.ShiftLeft:
		return ShiftLeft
	case ast.ShiftRight:
		if arithmetic {
			return ShiftRightArithmetic
		}
		return ShiftRightLogical
	case ast.Equal:
		return Equal
	case ast.NotEqual:
		return NotEqual
	case ast.LessThan:
		return LessThan
	case ast.GreaterThan:
		return GreaterThan
	case ast.LessOrEqual:
		return LessOrEqual
	case ast.GreaterOrEqual:
		return GreaterOrEqual
	default:
		panic("tacky: unhandled binary operator")
	}
}

// genLogicalAnd/genLogicalOr short-circuit: the right operand is only
// evaluated if the left doesn't already decide the result.
func (g *generator) genLogicalAnd(b *ast.BinaryExpr) Val {
	falseLabel := g.freshLabel("and_false")
	end := g.freshLabel("and_end")
	dst := g.freshTmp()

	left := g.genExpr(b.Left)
	g.emit(JumpIfZeroInstr{Cond: left, Target: falseLabel})
	right := g.genExpr(b.Right)
	g.emit(JumpIfZeroInstr{Cond: right, Target: falseLabel})
	g.emit(CopyInstr{Src: Constant{Value: 1}, Dst: dst})
	g.emit(JumpInstr{Target: end})
	g.emit(LabelInstr{Name: falseLabel})
	g.emit(CopyInstr{Src: Constant{Value: 0}, Dst: dst})
	g.emit(LabelInstr{Name: end})
	return dst
}

func (g *generator) genLogicalOr(b *ast.BinaryExpr) Val {
	trueLabel := g.freshLabel("or_true")
	end := g.freshLabel("or_end")
	dst := g.freshTmp()

	left := g.genExpr(b.Left)
	g.emit(JumpIfNotZeroInstr{Cond: left, Target: trueLabel})
	right := g.genExpr(b.Right)
	g.emit(JumpIfNotZeroInstr{Cond: right, Target: trueLabel})
	g.emit(CopyInstr{Src: Constant{Value: 0}, Dst: dst})
	g.emit(JumpInstr{Target: end})
	g.emit(LabelInstr{Name: trueLabel})
	g.emit(CopyInstr{Src: Constant{Value: 1}, Dst: dst})
	g.emit(LabelInstr{Name: end})
	return dst
}

func (g *generator) genAssignment(a *ast.AssignmentExpr) Val {
	target := a.LValue.(*ast.VarExpr)
	dst := Var{Name: target.Name}
	if a.Op == ast.Assign {
		val := g.genExpr(a.RValue)
		g.emit(CopyInstr{Src: val, Dst: dst})
		return dst
	}
	rhs := g.genExpr(a.RValue)
	g.emit(BinaryInstr{Op: binaryOpOf(a.Op.BinaryOp(), false), Src1: dst, Src2: rhs, Dst: dst})
	return dst
}

func (g *generator) genConditional(c *ast.ConditionalExpr) Val {
	elseLabel := g.freshLabel("cond_else")
	end := g.freshLabel("cond_end")
	dst := g.freshTmp()

	cond := g.genExpr(c.Cond)
	g.emit(JumpIfZeroInstr{Cond: cond, Target: elseLabel})
	thenVal := g.genExpr(c.Then)
	g.emit(CopyInstr{Src: thenVal, Dst: dst})
	g.emit(JumpInstr{Target: end})
	g.emit(LabelInstr{Name: elseLabel})
	elseVal := g.genExpr(c.Else)
	g.emit(CopyInstr{Src: elseVal, Dst: dst})
	g.emit(LabelInstr{Name: end})
	return dst
}

func (g *generator) genCall(c *ast.CallExpr) Val {
	args := make([]Val, len(c.Args))
	for i, a := range c.Args {
		args[i] = g.genExpr(a)
	}
	dst := g.freshTmp()
	external := true
	if sym, ok := g.funcs.Lookup(c.Name); ok {
		if ft, ok := sym.Type.(sema.FuncType); ok {
			external = !ft.Defined
		}
	}
	g.emit(FunCallInstr{Name: c.Name, Args: args, Dst: dst, External: external})
	return dst
}
