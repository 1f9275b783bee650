package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iley/coki/internal/errors"
	"github.com/iley/coki/internal/jit"
)

const source = "x := 3;\ny := x + 4;\noutput y;\n"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd, err := newRootCommand()
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return stdout.String(), err
}

func writeSource(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.coki")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestAST(t *testing.T) {
	out, err := execute(t, "", "ast", writeSource(t, source))
	require.NoError(t, err)
	assert.Equal(t, "(program (:= x 3) (:= y (+- (start x) (+ 4))) (output y))\n", out)
}

func TestAST_Stdin(t *testing.T) {
	out, err := execute(t, "output 1;", "ast", "-")
	require.NoError(t, err)
	assert.Equal(t, "(program (output 1))\n", out)
}

func TestIR(t *testing.T) {
	out, err := execute(t, "", "ir", writeSource(t, source))
	require.NoError(t, err)
	expected := `   0  Push(3)
   1  Pop([16384])
   2  Push([16384])
   3  Pop(rax)
   4  Push(rax)
   5  Push(4)
   6  Pop(rbx)
   7  Pop(rax)
   8  Add(rax, rbx)
   9  Push(rax)
  10  Pop([16392])
  11  Push([16392])
  12  Pop(rax)
  13  Out
; x @ 0x4000
; y @ 0x4008
`
	assert.Equal(t, expected, out)
}

func TestASM(t *testing.T) {
	out, err := execute(t, "", "asm", writeSource(t, source))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "%include \"coki_runtime.inc\"\ncoki_init 20480, 0x"))
	assert.Contains(t, out, "\tpop qword [r15 + 16392]\n")
	assert.True(t, strings.HasSuffix(out, "coki_exit\n"))
}

func TestRun(t *testing.T) {
	if !jit.CanExecute() {
		t.Skip("cannot run amd64 code here")
	}
	if _, err := exec.LookPath("nasm"); err != nil {
		t.Skip("nasm not found in PATH")
	}

	out, err := execute(t, "", "run", "--work-dir", t.TempDir(), writeSource(t, source))
	require.NoError(t, err)
	assert.Equal(t, "7\r\n", out)
}

func TestErrors(t *testing.T) {
	_, err := execute(t, "", "ir", writeSource(t, "output y;"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "main.coki:1:8: undefined variable: y")
	assert.True(t, strings.HasPrefix(describe(err), "compile error in checks.Run: "))

	_, err = execute(t, "", "ast", filepath.Join(t.TempDir(), "missing.coki"))
	require.Error(t, err)
	assert.Contains(t, describe(err), "failed to open")

	_, err = execute(t, "", "ast")
	assert.Error(t, err)

	_, err = execute(t, "", "--log-format=xml", "ast", writeSource(t, source))
	assert.ErrorContains(t, err, "unknown logging format: xml")
}

func TestDescribe(t *testing.T) {
	err := &errors.Error{Code: errors.ETool, Op: "assembler.Assemble", Msg: "assembling unit"}
	assert.Equal(t, "tool error in assembler.Assemble: assembling unit", describe(err))
}
