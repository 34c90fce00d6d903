// Package tacky defines the flat three-address intermediate
// representation the AST lowers to, and the generator that builds it.
// Unlike falcon's SSA-form HIR (values in a dominator-structured block
// graph), a tacky Function is a single straight-line list of
// Instructions: no blocks, no phis — control flow is expressed entirely
// by Jump/JumpIfZero/JumpIfNotZero/Label, matching the naive
// non-optimizing pipeline this compiler implements (see DESIGN.md).
package tacky

import (
	"fmt"
	"strings"
)

// Val is an instruction operand: either a literal Constant or a
// reference to a named temporary/variable slot.
type Val interface {
	val()
	String() string
}

type Constant struct {
	Value int64
}

func (Constant) val() {}
func (c Constant) String() string {
	return fmt.Sprintf("%d", c.Value)
}

type Var struct {
	Name string
}

func (Var) val() {}
func (v Var) String() string {
	return v.Name
}

type UnaryOp int

const (
	Complement UnaryOp = iota
	Negate
	Not
)

func (op UnaryOp) String() string {
	switch op {
	case Complement:
		return "Complement"
	case Negate:
		return "Negate"
	case Not:
		return "Not"
	default:
		return "?"
	}
}

// BinaryOp mirrors ast.BinaryOp, except that && and || have no IR op (they
// lower to jumps) and right shift splits into an
// arithmetic and a logical variant: the shift-arithmetic tag on the AST
// BinaryExpr (see ast.BinaryExpr.Arithmetic) selects between them here,
// and the choice only matters again once codegen picks `sar` vs `shr`.
type BinaryOp int

const (
	Add BinaryOp = iota
	Subtract
	Multiply
	Divide
	Remainder
	BitwiseAnd
	BitwiseOr
	BitwiseXor
	ShiftLeft
	ShiftRightArithmetic
	ShiftRightLogical
	Equal
	NotEqual
	LessThan
	GreaterThan
	LessOrEqual
	GreaterOrEqual
)

func (op BinaryOp) String() string {
	names := [...]string{
		"Add", "Subtract", "Multiply", "Divide", "Remainder",
		"BitwiseAnd", "BitwiseOr", "BitwiseXor", "ShiftLeft",
		"ShiftRightArithmetic", "ShiftRightLogical",
		"Equal", "NotEqual", "LessThan", "GreaterThan", "LessOrEqual", "GreaterOrEqual",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IsRelational reports whether op yields a 0/1 result.
func (op BinaryOp) IsRelational() bool {
	switch op {
	case Equal, NotEqual, LessThan, GreaterThan, LessOrEqual, GreaterOrEqual:
		return true
	}
	return false
}

// Instruction is a tagged variant; every case implements String() for the
// --debug IR dump.
type Instruction interface {
	String() string
}

type ReturnInstr struct {
	Val Val
}

func (i ReturnInstr) String() string { return fmt.Sprintf("Return(%s)", i.Val) }

type UnaryInstr struct {
	Op  UnaryOp
	Src Val
	Dst Var
}

func (i UnaryInstr) String() string {
	return fmt.Sprintf("%s = %s(%s)", i.Dst, i.Op, i.Src)
}

type BinaryInstr struct {
	Op   BinaryOp
	Src1 Val
	Src2 Val
	Dst  Var
}

func (i BinaryInstr) String() string {
	return fmt.Sprintf("%s = %s(%s, %s)", i.Dst, i.Op, i.Src1, i.Src2)
}

type CopyInstr struct {
	Src Val
	Dst Var
}

func (i CopyInstr) String() string { return fmt.Sprintf("%s = %s", i.Dst, i.Src) }

type JumpInstr struct {
	Target string
}

func (i JumpInstr) String() string { return fmt.Sprintf("Jump(%s)", i.Target) }

type JumpIfZeroInstr struct {
	Cond   Val
	Target string
}

func (i JumpIfZeroInstr) String() string { return fmt.Sprintf("JumpIfZero(%s, %s)", i.Cond, i.Target) }

type JumpIfNotZeroInstr struct {
	Cond   Val
	Target string
}

func (i JumpIfNotZeroInstr) String() string {
	return fmt.Sprintf("JumpIfNotZero(%s, %s)", i.Cond, i.Target)
}

type LabelInstr struct {
	Name string
}

func (i LabelInstr) String() string { return fmt.Sprintf("Label(%s):", i.Name) }

type FunCallInstr struct {
	Name string
	Args []Val
	Dst  Var
	// External marks a callee that is declared but not defined in this
	// translation unit, i.e. resolved through the dynamic linker rather
	// than a local label; asm/emit use it to decide whether the call
	// target needs a "@PLT" suffix (spec.md §4.5 rule 4 / §6 ABI).
	External bool
}

func (i FunCallInstr) String() string {
	var args []string
	for _, a := range i.Args {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s = Call(%s, [%s])", i.Dst, i.Name, strings.Join(args, ", "))
}

// Function is one tacky-level function: a flat instruction list plus the
// parameter names (already alpha-renamed by sema) the caller must bind.
type Function struct {
	Name   string
	Params []string
	Body   []Instruction
}

type Program struct {
	Functions []*Function
}

// Dump renders a Program as a flat, indented listing for --tacky --debug.
func Dump(p *Program) string {
	var b strings.Builder
	for _, fn := range p.Functions {
		fmt.Fprintf(&b, "function %s(%s):\n", fn.Name, strings.Join(fn.Params, ", "))
		for _, instr := range fn.Body {
			if _, isLabel := instr.(LabelInstr); isLabel {
				fmt.Fprintf(&b, "  %s\n", instr)
				continue
			}
			fmt.Fprintf(&b, "    %s\n", instr)
		}
	}
	return b.String()
}
