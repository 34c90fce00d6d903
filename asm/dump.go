package asm

import (
	"fmt"
	"strings"
)

// Dump renders a legalized Program as a flat, indented listing for
// --codegen --debug, mirroring tacky.Dump's label/instruction indentation.
func Dump(p *Program) string {
	var b strings.Builder
	for _, fn := range p.Functions {
		fmt.Fprintf(&b, "function %s (stack %d bytes):\n", fn.Name, fn.StackBytes)
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
