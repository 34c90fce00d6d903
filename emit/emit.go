// Package emit serializes a legalized asm.Program into AT&T-syntax text,
// the final stage of the pipeline. It never invokes an external assembler
// or linker (spec.md treats those as external collaborators): Emit's
// output is exactly the bytes subc writes to <input>.s.
package emit

import (
	"fmt"
	"strings"

	"subc/asm"
)

// Options controls cosmetic output details sourced from config (see
// config.Config.Emit) rather than spec.md's fixed CLI surface.
type Options struct {
	// CommentInstructions appends a trailing `# <tacky op>` comment to each
	// instruction line the lowering pass recorded a source op for.
	CommentInstructions bool
}

// Emit renders prog as a complete .s file: a .text section, one global
// label and prologue per function, an epilogue at every ret, and the GNU-stack note
// section every falcon/System-V-target .s file ends with so the linker
// doesn't mark the output executable-stack.
func Emit(prog *asm.Program, opts Options) string {
	var b strings.Builder
	b.WriteString("\t.text\n")
	for _, fn := range prog.Functions {
		emitFunction(&b, fn, opts)
	}
	b.WriteString("\t.section .note.GNU-stack,\"\",@progbits\n")
	return b.String()
}

func emitFunction(b *strings.Builder, fn *asm.Function, opts Options) {
	fmt.Fprintf(b, "\t.globl %s\n", fn.Name)
	fmt.Fprintf(b, "%s:\n", fn.Name)
	b.WriteString("\tpushq %rbp\n")
	b.WriteString("\tmovq %rsp, %rbp\n")
	for i, instr := range fn.Body {
		comment := ""
		if opts.CommentInstructions && i < len(fn.Comments) {
			comment = fn.Comments[i]
		}
		emitInstr(b, instr, comment)
	}
}

func emitInstr(b *strings.Builder, instr asm.Instruction, comment string) {
	if l, ok := instr.(asm.LabelInstr); ok {
		fmt.Fprintf(b, "%s:\n", l.Name)
		return
	}
	if _, ok := instr.(asm.RetInstr); ok {
		b.WriteString("\tmovq %rbp, %rsp\n")
		b.WriteString("\tpopq %rbp\n")
		b.WriteString("\tret\n")
		return
	}
	if comment != "" {
		fmt.Fprintf(b, "\t%s\t# %s\n", instr.String(), comment)
		return
	}
	fmt.Fprintf(b, "\t%s\n", instr.String())
}
