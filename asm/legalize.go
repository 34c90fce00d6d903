package asm

import "subc/config"

// Legalize runs the three fix-up passes spec.md's code generator stage
// names, in order: assign every Pseudo a Stack slot, prepend the
// function's stack-frame allocation, then rewrite any instruction whose
// operands x86-64 can't actually encode (two memory operands, an
// immediate where idivl forbids one, etc.) using scratch registers chosen
// from cfg.Codegen.ScratchRegister.
func Legalize(prog *Program, cfg config.Config) {
	scratch1, scratch2 := resolveScratch(cfg.Codegen.ScratchRegister)
	for _, fn := range prog.Functions {
		frameBytes := assignStackSlots(fn)
		fn.StackBytes = alignTo(frameBytes, cfg.Codegen.StackAlignment)
		fn.Body, fn.Comments = legalizeInstructions(fn.Body, fn.Comments, fn.StackBytes, scratch1, scratch2)
	}
}

// resolveScratch maps the configured primary scratch register name to a
// register pair: the primary, and a secondary free register for the rare
// instruction (imull into memory, cmpl against an immediate "destination")
// that needs two scratch slots at once.
func resolveScratch(name string) (primary, secondary Register) {
	if name == "r11" {
		return Register{Reg: R11, Width: 4}, Register{Reg: R10, Width: 4}
	}
	return Register{Reg: R10, Width: 4}, Register{Reg: R11, Width: 4}
}

func alignTo(n, alignment int) int {
	if alignment <= 0 {
		alignment = 16
	}
	if n%alignment == 0 {
		return n
	}
	return n + (alignment - n%alignment)
}

// assignStackSlots is fix-up pass 1: every distinct Pseudo name is given a
// 4-byte-aligned negative offset from %rbp, and every Pseudo operand in the
// function is rewritten to the matching Stack operand. Returns the raw
// (pre-alignment) number of bytes used.
func assignStackSlots(fn *Function) int {
	offsets := map[string]int{}
	next := 0

	slotFor := func(name string) Stack {
		if off, ok := offsets[name]; ok {
			return Stack{Offset: off}
		}
		next -= 4
		offsets[name] = next
		return Stack{Offset: next}
	}

	rewrite := func(op Operand) Operand {
		if p, ok := op.(Pseudo); ok {
			return slotFor(p.Name)
		}
		return op
	}

	for i, instr := range fn.Body {
		fn.Body[i] = rewriteOperands(instr, rewrite)
	}
	return -next
}

// rewriteOperands applies f to every operand position of instr, returning a
// (possibly) new Instruction value — Instruction variants are plain structs,
// so this is a straightforward per-case field rewrite.
func rewriteOperands(instr Instruction, f func(Operand) Operand) Instruction {
	switch v := instr.(type) {
	case MovInstr:
		return MovInstr{Src: f(v.Src), Dst: f(v.Dst)}
	case UnaryInstr:
		return UnaryInstr{Op: v.Op, Operand: f(v.Operand)}
	case BinaryInstr:
		return BinaryInstr{Op: v.Op, Src: f(v.Src), Dst: f(v.Dst)}
	case CmpInstr:
		return CmpInstr{Src: f(v.Src), Dst: f(v.Dst)}
	case IdivInstr:
		return IdivInstr{Operand: f(v.Operand)}
	case SetCCInstr:
		return SetCCInstr{Cond: v.Cond, Dst: f(v.Dst)}
	case PushInstr:
		return PushInstr{Operand: f(v.Operand)}
	default:
		return instr
	}
}

// legalizeInstructions is fix-up passes 2 and 3 combined: prepend the
// stack-frame prologue (pass 2), then walk the body rewriting any
// instruction x86-64 cannot encode as-is (pass 3). comments runs parallel
// to body; the result pairing keeps each expanded instruction group's
// first instruction labeled with its source tacky op, same as lower.go.
func legalizeInstructions(body []Instruction, comments []string, frameBytes int, scratch1, scratch2 Register) ([]Instruction, []string) {
	out := make([]Instruction, 0, len(body)+1)
	outComments := make([]string, 0, len(body)+1)
	if frameBytes > 0 {
		out = append(out, AllocateStackInstr{Bytes: frameBytes})
		outComments = append(outComments, "")
	}
	for i, instr := range body {
		expanded := legalizeOne(instr, scratch1, scratch2)
		out = append(out, expanded...)
		comment := ""
		if i < len(comments) {
			comment = comments[i]
		}
		outComments = append(outComments, comment)
		for range expanded[1:] {
			outComments = append(outComments, "")
		}
	}
	return out, outComments
}

func isMemory(op Operand) bool {
	_, ok := op.(Stack)
	return ok
}

func isImm(op Operand) bool {
	_, ok := op.(Imm)
	return ok
}

func legalizeOne(instr Instruction, scratch1, scratch2 Register) []Instruction {
	switch v := instr.(type) {
	case MovInstr:
		if isMemory(v.Src) && isMemory(v.Dst) {
			return []Instruction{
				MovInstr{Src: v.Src, Dst: scratch1},
				MovInstr{Src: scratch1, Dst: v.Dst},
			}
		}
		return []Instruction{v}

	case BinaryInstr:
		return legalizeBinary(v, scratch1, scratch2)

	case CmpInstr:
		if isMemory(v.Src) && isMemory(v.Dst) {
			return []Instruction{
				MovInstr{Src: v.Src, Dst: scratch1},
				CmpInstr{Src: scratch1, Dst: v.Dst},
			}
		}
		if isImm(v.Dst) {
			// cmpl can't write to an immediate "destination" (it isn't a
			// destination at all, but it also can't be the second
			// operand-as-flags-subject in AT&T's Dst position); move it
			// through a scratch register the same way.
			return []Instruction{
				MovInstr{Src: v.Dst, Dst: scratch2},
				CmpInstr{Src: v.Src, Dst: scratch2},
			}
		}
		return []Instruction{v}

	case IdivInstr:
		if isImm(v.Operand) {
			return []Instruction{
				MovInstr{Src: v.Operand, Dst: scratch1},
				IdivInstr{Operand: scratch1},
			}
		}
		return []Instruction{v}

	default:
		return []Instruction{v}
	}
}

func legalizeBinary(v BinaryInstr, scratch1, scratch2 Register) []Instruction {
	switch v.Op {
	case Mul:
		// imull can't write directly to a memory destination.
		if isMemory(v.Dst) {
			return []Instruction{
				MovInstr{Src: v.Dst, Dst: scratch2},
				BinaryInstr{Op: Mul, Src: v.Src, Dst: scratch2},
				MovInstr{Src: scratch2, Dst: v.Dst},
			}
		}
		return []Instruction{v}

	case Shl, Sar, Shr:
		// Src is already either an Imm or %cl from lowering; neither
		// needs further legalization, and Dst being memory is fine for
		// shifts.
		return []Instruction{v}

	default:
		if isMemory(v.Src) && isMemory(v.Dst) {
			return []Instruction{
				MovInstr{Src: v.Src, Dst: scratch1},
				BinaryInstr{Op: v.Op, Src: scratch1, Dst: v.Dst},
			}
		}
		return []Instruction{v}
	}
}
