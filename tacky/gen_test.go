package tacky_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"subc/ast"
	"subc/sema"
	"subc/tacky"
)

func genFrom(t *testing.T, src string) *tacky.Program {
	t.Helper()
	toks, err := ast.NewLexer(src).Lex()
	require.NoError(t, err)
	prog, err := ast.NewParser(toks).Parse()
	require.NoError(t, err)
	funcs, err := sema.Analyze(prog)
	require.NoError(t, err)
	return tacky.Generate(prog, funcs)
}

func TestGenerate_SkipsBodylessPrototypes(t *testing.T) {
	p := genFrom(t, `
		int helper(void);
		int main(void) { return 0; }
	`)
	require.Len(t, p.Functions, 1)
	require.Equal(t, "main", p.Functions[0].Name)
}

func TestGenerate_FallsOffEndReturnsZero(t *testing.T) {
	p := genFrom(t, `int main(void) { int x = 1; }`)
	fn := p.Functions[0]
	last := fn.Body[len(fn.Body)-1]
	ret, ok := last.(tacky.ReturnInstr)
	require.True(t, ok, "expected final instruction to be ReturnInstr, got %T", last)
	require.Equal(t, tacky.Constant{Value: 0}, ret.Val)
}

func TestGenerate_CompoundAssignmentReadsBeforeWrite(t *testing.T) {
	p := genFrom(t, `int main(void) { int x = 1; x += 2; return x; }`)
	fn := p.Functions[0]
	var bin *tacky.BinaryInstr
	for _, instr := range fn.Body {
		if b, ok := instr.(tacky.BinaryInstr); ok {
			cp := b
			bin = &cp
		}
	}
	require.NotNil(t, bin)
	require.Equal(t, tacky.Add, bin.Op)
	require.Equal(t, tacky.Var{Name: bin.Dst.Name}, bin.Src1, "x += 2 reads x as its left operand")
}

func TestGenerate_ShiftArithmeticVsLogical(t *testing.T) {
	p := genFrom(t, `int main(void) { return (-1 >> 2) + (1 >> 2); }`)
	fn := p.Functions[0]
	var ops []tacky.BinaryOp
	for _, instr := range fn.Body {
		if b, ok := instr.(tacky.BinaryInstr); ok {
			ops = append(ops, b.Op)
		}
	}
	require.Contains(t, ops, tacky.ShiftRightArithmetic)
	require.Contains(t, ops, tacky.ShiftRightLogical)
}

func TestGenerate_SwitchLowersToCompareAndJump(t *testing.T) {
	p := genFrom(t, `
		int main(void) {
			switch (1) {
			case 1: break;
			case 2: break;
			default: break;
			}
			return 0;
		}
	`)
	fn := p.Functions[0]
	var equalCount, condJumpCount int
	for _, instr := range fn.Body {
		switch v := instr.(type) {
		case tacky.BinaryInstr:
			if v.Op == tacky.Equal {
				equalCount++
			}
		case tacky.JumpIfNotZeroInstr:
			condJumpCount++
		}
	}
	require.Equal(t, 2, equalCount, "one Equal comparison per case target")
	require.Equal(t, 2, condJumpCount, "one conditional jump per case target")
}

func TestGenerate_PostIncrementReturnsOldValue(t *testing.T) {
	p := genFrom(t, `int main(void) { int x = 1; return x++; }`)
	fn := p.Functions[0]
	var sawCopyBeforeAdd bool
	for i, instr := range fn.Body {
		if _, ok := instr.(tacky.CopyInstr); ok {
			if i+1 < len(fn.Body) {
				if b, ok := fn.Body[i+1].(tacky.BinaryInstr); ok && b.Op == tacky.Add {
					sawCopyBeforeAdd = true
				}
			}
		}
	}
	require.True(t, sawCopyBeforeAdd, "postfix ++ must copy the old value before incrementing")
}

func TestGenerate_CallArgumentsEvaluatedLeftToRight(t *testing.T) {
	p := genFrom(t, `
		int add(int a, int b);
		int main(void) { return add(1, 2); }
	`)
	fn := p.Functions[0]
	var call *tacky.FunCallInstr
	for _, instr := range fn.Body {
		if c, ok := instr.(tacky.FunCallInstr); ok {
			cp := c
			call = &cp
		}
	}
	require.NotNil(t, call)
	require.Equal(t, "add", call.Name)
	require.Len(t, call.Args, 2)
	require.Equal(t, tacky.Constant{Value: 1}, call.Args[0])
	require.Equal(t, tacky.Constant{Value: 2}, call.Args[1])
	require.True(t, call.External, "a call to a declaration-only function is external")
}

func TestGenerate_CallToLocallyDefinedFunctionIsNotExternal(t *testing.T) {
	p := genFrom(t, `
		int add(int a, int b) { return a + b; }
		int main(void) { return add(1, 2); }
	`)
	var call *tacky.FunCallInstr
	for _, fn := range p.Functions {
		for _, instr := range fn.Body {
			if c, ok := instr.(tacky.FunCallInstr); ok && c.Name == "add" {
				cp := c
				call = &cp
			}
		}
	}
	require.NotNil(t, call)
	require.False(t, call.External, "a call to a function defined in this translation unit is not external")
}

func TestGenerate_LogicalAndShortCircuits(t *testing.T) {
	p := genFrom(t, `int main(void) { return 1 && 0; }`)
	fn := p.Functions[0]
	var sawJumpIfZero bool
	for _, instr := range fn.Body {
		if _, ok := instr.(tacky.JumpIfZeroInstr); ok {
			sawJumpIfZero = true
		}
	}
	require.True(t, sawJumpIfZero, "&& must short-circuit via JumpIfZero")
}

func TestGenerate_TemporariesAreUniqueAcrossFunctions(t *testing.T) {
	p := genFrom(t, `
		int f(void) { return 1 + 2; }
		int g(void) { return 3 + 4; }
	`)
	seen := map[string]bool{}
	for _, fn := range p.Functions {
		for _, instr := range fn.Body {
			if b, ok := instr.(tacky.BinaryInstr); ok {
				name := b.Dst.Name
				require.False(t, seen[name], "temporary %s reused across functions", name)
				seen[name] = true
			}
		}
	}
}
