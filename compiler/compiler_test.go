package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"subc/asm"
	"subc/ccerr"
	"subc/compiler"
	"subc/config"
)

func TestCompile_FullPipelineProducesAssemblyText(t *testing.T) {
	res, err := compiler.Compile(`int main(void) { return 2 + 3 * 4; }`, compiler.Options{
		Stage:  compiler.StageAll,
		Config: config.Default(),
	})
	require.NoError(t, err)
	require.Equal(t, 0, compiler.ExitCode(err))
	require.Contains(t, res.Text, "\t.text\n")
	require.Contains(t, res.Text, "main:\n")
	require.Contains(t, res.Text, "\t.section .note.GNU-stack,\"\",@progbits\n")
}

func TestCompile_StageLexStopsBeforeParsing(t *testing.T) {
	res, err := compiler.Compile(`int main(void) { return 0; }`, compiler.Options{
		Stage:  compiler.StageLex,
		Config: config.Default(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Tokens)
	require.Nil(t, res.AST)
	require.Empty(t, res.Text)
}

func TestCompile_StageParseStopsBeforeSema(t *testing.T) {
	res, err := compiler.Compile(`int main(void) { return 0; }`, compiler.Options{
		Stage:  compiler.StageParse,
		Config: config.Default(),
	})
	require.NoError(t, err)
	require.NotNil(t, res.AST)
	require.Nil(t, res.Funcs)
	require.Empty(t, res.Text)
}

func TestCompile_StageValidateStopsBeforeTacky(t *testing.T) {
	res, err := compiler.Compile(`int main(void) { return 0; }`, compiler.Options{
		Stage:  compiler.StageValidate,
		Config: config.Default(),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Funcs)
	require.Nil(t, res.Tacky)
	require.Empty(t, res.Text)
}

func TestCompile_StageTackyStopsBeforeCodegen(t *testing.T) {
	res, err := compiler.Compile(`int main(void) { return 0; }`, compiler.Options{
		Stage:  compiler.StageTacky,
		Config: config.Default(),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Tacky)
	require.Nil(t, res.Asm)
	require.Empty(t, res.Text)
}

func TestCompile_StageCodegenStopsBeforeEmit(t *testing.T) {
	res, err := compiler.Compile(`int main(void) { return 0; }`, compiler.Options{
		Stage:  compiler.StageCodegen,
		Config: config.Default(),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Asm)
	require.Empty(t, res.Text, "codegen stage must not run emit")
}

func TestCompile_DebugOptionAccumulatesEveryStageDump(t *testing.T) {
	res, err := compiler.Compile(`int main(void) { return 0; }`, compiler.Options{
		Stage:  compiler.StageAll,
		Debug:  true,
		Config: config.Default(),
	})
	require.NoError(t, err)
	require.Contains(t, res.Debug, "== Tokens ==")
	require.Contains(t, res.Debug, "== AST ==")
	require.Contains(t, res.Debug, "== Tacky ==")
	require.Contains(t, res.Debug, "== Assembly ==")
}

func TestCompile_LexicalErrorAbortsEarlyWithNonZeroExit(t *testing.T) {
	_, err := compiler.Compile(`int main(void) { return 1foo; }`, compiler.Options{
		Stage:  compiler.StageAll,
		Config: config.Default(),
	})
	require.Error(t, err)
	require.Equal(t, 1, compiler.ExitCode(err))
	var lexErr *ccerr.LexicalError
	require.ErrorAs(t, err, &lexErr)
}

func TestCompile_ParseErrorAbortsEarlyWithNonZeroExit(t *testing.T) {
	_, err := compiler.Compile(`int main(void) { return 0;`, compiler.Options{
		Stage:  compiler.StageAll,
		Config: config.Default(),
	})
	require.Error(t, err)
	require.Equal(t, 1, compiler.ExitCode(err))
	var parseErr *ccerr.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestCompile_SemanticErrorAbortsEarlyWithNonZeroExit(t *testing.T) {
	_, err := compiler.Compile(`int main(void) { return undeclared; }`, compiler.Options{
		Stage:  compiler.StageAll,
		Config: config.Default(),
	})
	require.Error(t, err)
	require.Equal(t, 1, compiler.ExitCode(err))
	var semErr *ccerr.SemanticError
	require.ErrorAs(t, err, &semErr)
}

func TestCompile_NoPseudoOperandSurvivesFullPipeline(t *testing.T) {
	res, err := compiler.Compile(`
		int add(int a, int b) { return a + b; }
		int main(void) {
			int x = 1;
			int y = 2;
			return add(x, y) * 3;
		}
	`, compiler.Options{Stage: compiler.StageAll, Config: config.Default()})
	require.NoError(t, err)
	for _, fn := range res.Asm.Functions {
		for _, instr := range fn.Body {
			require.NotContains(t, instr.String(), "%!", "instruction should render cleanly: %v", instr)
		}
	}
	require.NotContains(t, res.Text, "%pseudo(")
}

func TestCompile_StackFrameBytesAreAlignedEndToEnd(t *testing.T) {
	res, err := compiler.Compile(`
		int main(void) {
			int a = 1;
			int b = 2;
			int c = 3;
			int d = 4;
			int e = 5;
			return a + b + c + d + e;
		}
	`, compiler.Options{Stage: compiler.StageAll, Config: config.Default()})
	require.NoError(t, err)
	for _, fn := range res.Asm.Functions {
		require.Equal(t, 0, fn.StackBytes%16)
	}
}

func TestCompile_PrologueAndEpilogueBalancePerFunction(t *testing.T) {
	res, err := compiler.Compile(`
		int helper(void) { return 1; }
		int main(void) { return helper(); }
	`, compiler.Options{Stage: compiler.StageAll, Config: config.Default()})
	require.NoError(t, err)
	pushCount := strings.Count(res.Text, "\tpushq %rbp\n")
	popCount := strings.Count(res.Text, "\tpopq %rbp\n")
	require.Equal(t, len(res.Asm.Functions), pushCount)
	// Every ret (an explicit return plus the trailing Return(0) tacky
	// appends) carries its own epilogue.
	retCount := 0
	for _, fn := range res.Asm.Functions {
		for _, instr := range fn.Body {
			if _, ok := instr.(asm.RetInstr); ok {
				retCount++
			}
		}
	}
	require.Equal(t, retCount, popCount)
}

func TestCompile_RespectsCustomScratchRegisterConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Codegen.ScratchRegister = "r11"
	res, err := compiler.Compile(`
		int main(void) {
			int a = 1;
			int b = 2;
			a = b;
			return a;
		}
	`, compiler.Options{Stage: compiler.StageAll, Config: cfg})
	require.NoError(t, err)
	require.Contains(t, res.Text, "%r11")
}

func TestCompile_EmitCommentsToggleViaConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Emit.CommentInstructions = true
	res, err := compiler.Compile(`int main(void) { return 1 + 2; }`, compiler.Options{
		Stage: compiler.StageAll, Config: cfg,
	})
	require.NoError(t, err)
	require.Contains(t, res.Text, "\t# ")
}

func TestCompile_SwitchCaseValuesRemainUniquePerSource(t *testing.T) {
	_, err := compiler.Compile(`
		int main(void) {
			switch (1) {
			case 1: break;
			case 1: break;
			}
			return 0;
		}
	`, compiler.Options{Stage: compiler.StageAll, Config: config.Default()})
	require.Error(t, err)
	var semErr *ccerr.SemanticError
	require.ErrorAs(t, err, &semErr)
	require.Equal(t, ccerr.DuplicateCase, semErr.Kind)
}

func TestCompile_LocallyDefinedCalleeOmitsPLTSuffix(t *testing.T) {
	res, err := compiler.Compile(`
		int add(int a, int b) { return a + b; }
		int main(void) { return add(1, 2); }
	`, compiler.Options{Stage: compiler.StageAll, Config: config.Default()})
	require.NoError(t, err)
	require.Contains(t, res.Text, "call add\n")
	require.NotContains(t, res.Text, "call add@PLT")
}

func TestCompile_ExternallyDeclaredCalleeGetsPLTSuffix(t *testing.T) {
	res, err := compiler.Compile(`
		int puts(int s);
		int main(void) { return puts(0); }
	`, compiler.Options{Stage: compiler.StageAll, Config: config.Default()})
	require.NoError(t, err)
	require.Contains(t, res.Text, "call puts@PLT")
}

func TestCompile_LabelsAreUniqueAcrossProgram(t *testing.T) {
	res, err := compiler.Compile(`
		int f(void) { while (1) { break; } return 0; }
		int g(void) { while (1) { break; } return 0; }
	`, compiler.Options{Stage: compiler.StageAll, Config: config.Default()})
	require.NoError(t, err)
	seenLabels := map[string]bool{}
	for _, fn := range res.Asm.Functions {
		for _, instr := range fn.Body {
			if l, ok := instr.(asm.LabelInstr); ok {
				require.False(t, seenLabels[l.Name], "label %s reused across functions", l.Name)
				seenLabels[l.Name] = true
			}
		}
	}
}
