package asm

import (
	"fmt"

	"subc/tacky"
)

// argRegs holds the System V integer argument registers, in order, for the
// first six arguments; the rest arrive on the caller's stack.
var argRegs = [6]Reg{DI, SI, DX, CX, R8, R9}

// Lower translates a tacky.Program into an unlegalized asm.Program: every
// tacky Var becomes a Pseudo, Pseudo operands still need stack slots, the
// frame is not yet allocated, and operand combinations are not yet
// legalized (call sequences already carry their own alignment padding).
// legalize.go's three fix-up passes finish the job before emit.go
// serializes the result.
func Lower(prog *tacky.Program) *Program {
	out := &Program{}
	for _, fn := range prog.Functions {
		out.Functions = append(out.Functions, lowerFunction(fn))
	}
	return out
}

type lowerer struct {
	body     []Instruction
	comments map[int]string
}

func (l *lowerer) emit(i Instruction) {
	l.body = append(l.body, i)
}

// lowerGroup runs f, which emits one or more Instructions for a single
// tacky.Instruction, then labels the first emitted Instruction with that
// tacky instruction's text so emit.go can annotate the listing.
func (l *lowerer) lowerGroup(source fmt.Stringer, f func()) {
	start := len(l.body)
	f()
	if len(l.body) > start {
		l.comments[start] = source.String()
	}
}

func lowerFunction(fn *tacky.Function) *Function {
	l := &lowerer{comments: map[int]string{}}

	for i, name := range fn.Params {
		dst := Pseudo{Name: name}
		if i < 6 {
			l.emit(MovInstr{Src: Register{Reg: argRegs[i], Width: 4}, Dst: dst})
		} else {
			// Stack arguments sit above the saved return address and
			// caller's frame, at positive offsets from %rbp: the first
			// stack arg is at 16(%rbp) (8 for the saved rbp, 8 for the
			// return address pushed by `call`).
			off := 16 + 8*(i-6)
			l.emit(MovInstr{Src: Stack{Offset: off}, Dst: dst})
		}
	}

	for _, instr := range fn.Body {
		l.lowerGroup(instr, func() { l.lowerInstr(instr) })
	}

	comments := make([]string, len(l.body))
	for idx, text := range l.comments {
		comments[idx] = text
	}
	return &Function{Name: fn.Name, Body: l.body, Comments: comments}
}

func operandOf(v tacky.Val) Operand {
	switch t := v.(type) {
	case tacky.Constant:
		return Imm{Value: t.Value}
	case tacky.Var:
		return Pseudo{Name: t.Name}
	default:
		panic(fmt.Sprintf("asm: unhandled tacky operand %T", v))
	}
}

func condCodeOf(op tacky.BinaryOp) CondCode {
	switch op {
	case tacky.Equal:
		return E
	case tacky.NotEqual:
		return NE
	case tacky.LessThan:
		return L
	case tacky.GreaterThan:
		return G
	case tacky.LessOrEqual:
		return LE
	case tacky.GreaterOrEqual:
		return GE
	default:
		panic("asm: not a relational op")
	}
}

func simpleBinaryOp(op tacky.BinaryOp) (BinaryOp, bool) {
	switch op {
	case tacky.Add:
		return Add, true
	case tacky.Subtract:
		return Sub, true
	case tacky.Multiply:
		return Mul, true
	case tacky.BitwiseAnd:
		return And, true
	case tacky.BitwiseOr:
		return Or, true
	case tacky.BitwiseXor:
		return Xor, true
	case tacky.ShiftLeft:
		return Shl, true
	case tacky.ShiftRightArithmetic:
		return Sar, true
	case tacky.ShiftRightLogical:
		return Shr, true
	default:
		return 0, false
	}
}

func isShift(op BinaryOp) bool {
	return op == Shl || op == Sar || op == Shr
}

func (l *lowerer) lowerInstr(instr tacky.Instruction) {
	switch v := instr.(type) {
	case tacky.ReturnInstr:
		l.emit(MovInstr{Src: operandOf(v.Val), Dst: Register{Reg: AX, Width: 4}})
		l.emit(RetInstr{})

	case tacky.UnaryInstr:
		l.lowerUnary(v)

	case tacky.BinaryInstr:
		l.lowerBinary(v)

	case tacky.CopyInstr:
		l.emit(MovInstr{Src: operandOf(v.Src), Dst: Pseudo{Name: v.Dst.Name}})

	case tacky.JumpInstr:
		l.emit(JmpInstr{Target: v.Target})

	case tacky.JumpIfZeroInstr:
		l.emit(CmpInstr{Src: Imm{Value: 0}, Dst: operandOf(v.Cond)})
		l.emit(JmpCCInstr{Cond: E, Target: v.Target})

	case tacky.JumpIfNotZeroInstr:
		l.emit(CmpInstr{Src: Imm{Value: 0}, Dst: operandOf(v.Cond)})
		l.emit(JmpCCInstr{Cond: NE, Target: v.Target})

	case tacky.LabelInstr:
		l.emit(LabelInstr{Name: v.Name})

	case tacky.FunCallInstr:
		l.lowerCall(v)

	default:
		panic(fmt.Sprintf("asm: unhandled tacky instruction %T", instr))
	}
}

func (l *lowerer) lowerUnary(v tacky.UnaryInstr) {
	dst := Pseudo{Name: v.Dst.Name}
	if v.Op == tacky.Not {
		l.emit(CmpInstr{Src: Imm{Value: 0}, Dst: operandOf(v.Src)})
		l.emit(MovInstr{Src: Imm{Value: 0}, Dst: dst})
		l.emit(SetCCInstr{Cond: E, Dst: dst})
		return
	}
	op := Neg
	if v.Op == tacky.Complement {
		op = Not
	}
	l.emit(MovInstr{Src: operandOf(v.Src), Dst: dst})
	l.emit(UnaryInstr{Op: op, Operand: dst})
}

func (l *lowerer) lowerBinary(v tacky.BinaryInstr) {
	dst := Pseudo{Name: v.Dst.Name}

	if v.Op.IsRelational() {
		l.emit(CmpInstr{Src: operandOf(v.Src2), Dst: operandOf(v.Src1)})
		l.emit(MovInstr{Src: Imm{Value: 0}, Dst: dst})
		l.emit(SetCCInstr{Cond: condCodeOf(v.Op), Dst: dst})
		return
	}

	if v.Op == tacky.Divide || v.Op == tacky.Remainder {
		l.emit(MovInstr{Src: operandOf(v.Src1), Dst: Register{Reg: AX, Width: 4}})
		l.emit(CdqInstr{})
		l.emit(IdivInstr{Operand: operandOf(v.Src2)})
		result := Register{Reg: AX, Width: 4}
		if v.Op == tacky.Remainder {
			result = Register{Reg: DX, Width: 4}
		}
		l.emit(MovInstr{Src: result, Dst: dst})
		return
	}

	op, ok := simpleBinaryOp(v.Op)
	if !ok {
		panic("asm: unhandled binary op")
	}
	l.emit(MovInstr{Src: operandOf(v.Src1), Dst: dst})
	src := operandOf(v.Src2)
	if isShift(op) {
		// x86 shift counts must be an immediate or sit in %cl.
		if _, isImm := src.(Imm); !isImm {
			l.emit(MovInstr{Src: src, Dst: Register{Reg: CX, Width: 4}})
			src = Register{Reg: CX, Width: 1}
		}
	}
	l.emit(BinaryInstr{Op: op, Src: src, Dst: dst})
}

func (l *lowerer) lowerCall(v tacky.FunCallInstr) {
	register, stack := v.Args, []tacky.Val(nil)
	if len(v.Args) > 6 {
		register, stack = v.Args[:6], v.Args[6:]
	}

	// Stack arguments are pushed in reverse order so they land in the
	// caller's frame left-to-right as 8-byte slots; combined with the
	// 16-byte realignment padding below this keeps %rsp aligned at Call
	// per the System V ABI.
	stackPadding := 0
	if len(stack)%2 != 0 {
		stackPadding = 8
		l.emit(AllocateStackInstr{Bytes: stackPadding})
	}
	for i := len(stack) - 1; i >= 0; i-- {
		op := operandOf(stack[i])
		switch op.(type) {
		case Register, Imm:
			l.emit(PushInstr{Operand: op})
		default:
			// Pushq only takes register/immediate/memory-qword operands
			// cleanly for our 4-byte pseudos; widen through a scratch
			// register so the push always moves a full quadword.
			l.emit(MovInstr{Src: op, Dst: Register{Reg: AX, Width: 4}})
			l.emit(PushInstr{Operand: Register{Reg: AX, Width: 8}})
		}
	}

	for i, a := range register {
		l.emit(MovInstr{Src: operandOf(a), Dst: Register{Reg: argRegs[i], Width: 4}})
	}

	l.emit(CallInstr{Name: v.Name, External: v.External})

	bytesToRemove := 8*len(stack) + stackPadding
	if bytesToRemove > 0 {
		l.emit(DeallocateStackInstr{Bytes: bytesToRemove})
	}

	l.emit(MovInstr{Src: Register{Reg: AX, Width: 4}, Dst: Pseudo{Name: v.Dst.Name}})
}
