package compiler

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iley/coki/internal/codegen/nasm"
	"github.com/iley/coki/internal/errors"
	"github.com/iley/coki/internal/jit"
	"github.com/iley/coki/internal/layout"
	"github.com/iley/coki/internal/mock"
	"github.com/iley/coki/internal/symtab"
)

const example = "x := 3;\ny := x + 4;\noutput y;\n"

// mov eax, 42
var returns42 = []byte{0xB8, 0x2A, 0x00, 0x00, 0x00}

func TestRun_MockAssembler(t *testing.T) {
	if !jit.CanExecute() {
		t.Skip("cannot run amd64 code here")
	}

	ctrl := gomock.NewController(t)
	asmr := mock.NewMockAssembler(ctrl)
	asmr.EXPECT().
		Assemble(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, unit nasm.Unit) ([]byte, error) {
			assert.Contains(t, string(unit.Source), "coki_init")
			assert.Contains(t, unit.Includes, nasm.RuntimeInclude)
			return returns42, nil
		})

	var out bytes.Buffer
	c := New(Config{Assembler: asmr, Output: &out})
	res, err := c.Run(context.Background(), "main.coki", strings.NewReader(example))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), res.Value)
	assert.Equal(t, map[string]int64{"x": 0, "y": 0}, res.Variables)
	assert.Empty(t, out.String())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   string
		op     string
		msg    string
	}{
		{"syntax", "x := ;", errors.ECompile, "parser.Parse", "main.coki:1:6: expected expression"},
		{"undefined variable", "output y;", errors.ECompile, "checks.Run", "main.coki:1:8: undefined variable: y"},
		{"self reference", "x := x + 1;", errors.ECompile, "checks.Run", "undefined variable: x"},
		{"division by literal zero", "output 1 / 0;", errors.ECompile, "checks.Run", "main.coki:1:12: division by constant zero"},
		{"all problems at once", "output a + b;", errors.ECompile, "checks.Run", "main.coki:1:8: undefined variable: a; main.coki:1:12: undefined variable: b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			// Neither the assembler nor the backend may be touched.
			c := New(Config{
				Assembler: mock.NewMockAssembler(ctrl),
				Backend:   mock.NewMockBackend(ctrl),
			})
			_, err := c.Run(context.Background(), "main.coki", strings.NewReader(tt.source))
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.ErrorCode(err))
			assert.Equal(t, tt.op, errors.ErrorOp(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	t.Run("undefined is a sentinel", func(t *testing.T) {
		_, err := New(Config{}).Lower("main.coki", strings.NewReader("output z;"))
		assert.True(t, stderrors.Is(err, symtab.ErrUndefined))
	})
}

func TestCompile_AssemblerFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	asmr := mock.NewMockAssembler(ctrl)
	toolErr := &errors.Error{Code: errors.ETool, Op: "assembler.Assemble", Msg: "exit status 1"}
	asmr.EXPECT().Assemble(gomock.Any(), gomock.Any()).Return(nil, toolErr)

	c := New(Config{Assembler: asmr, Backend: mock.NewMockBackend(ctrl)})
	_, err := c.Run(context.Background(), "main.coki", strings.NewReader(example))
	assert.Same(t, toolErr, err)
}

func TestCompile_CodeTooLarge(t *testing.T) {
	ctrl := gomock.NewController(t)
	asmr := mock.NewMockAssembler(ctrl)
	asmr.EXPECT().Assemble(gomock.Any(), gomock.Any()).Return(make([]byte, layout.CodeLimit+1), nil)

	_, err := New(Config{Assembler: asmr}).Compile(context.Background(), "main.coki", strings.NewReader(example))
	require.Error(t, err)
	assert.Equal(t, errors.ECompile, errors.ErrorCode(err))
	assert.Contains(t, err.Error(), "the code region holds")
}

func TestExecute_ReleasesOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mock.NewMockBackend(ctrl)
	backend.EXPECT().Allocate(gomock.Any()).DoAndReturn(func(size int) ([]byte, error) {
		return make([]byte, size), nil
	})
	backend.EXPECT().Protect(gomock.Any()).Return(nil)
	backend.EXPECT().Free(gomock.Any()).Return(stderrors.New("munmap failed")).Times(1)

	c := New(Config{Backend: backend})
	u, err := c.Lower("main.coki", strings.NewReader(example))
	require.NoError(t, err)
	// Bypasses the size check in Compile so that loading itself fails.
	u.Code = make([]byte, layout.CodeLimit+1)

	_, err = c.Execute(u)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, jit.ErrBufferFull))
	assert.Contains(t, err.Error(), "munmap failed")
	assert.Len(t, multierr.Errors(err), 2)
}

func TestCompile_LogsStages(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	clk := clock.NewMock()

	ctrl := gomock.NewController(t)
	asmr := mock.NewMockAssembler(ctrl)
	asmr.EXPECT().Assemble(gomock.Any(), gomock.Any()).Return(returns42, nil)

	c := New(Config{Assembler: asmr, Logger: zap.New(core), Clock: clk})
	u, err := c.Compile(context.Background(), "main.coki", strings.NewReader(example))
	require.NoError(t, err)
	assert.Len(t, u.ID, 36)
	assert.Equal(t, returns42, u.Code)

	var stages []string
	for _, entry := range logs.FilterMessage("Stage finished").All() {
		fields := entry.ContextMap()
		assert.Equal(t, u.ID, fields["unit"])
		assert.Equal(t, "main.coki", fields["file"])
		stages = append(stages, fields["stage"].(string))
	}
	assert.Equal(t, []string{"parse", "check", "codegen", "render", "assemble"}, stages)
}

func TestPartialStages(t *testing.T) {
	c := New(Config{})

	u, err := c.Parse("main.coki", strings.NewReader(example))
	require.NoError(t, err)
	assert.Equal(t, "(program (:= x 3) (:= y (+- (start x) (+ 4))) (output y))", u.AST.String())
	assert.Zero(t, u.Instructions.Len())

	u, err = c.Lower("main.coki", strings.NewReader(example))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, u.Symbols.Names())
	assert.NotZero(t, u.Instructions.Len())
	assert.Empty(t, u.Source.Source)

	u, err = c.Render("main.coki", strings.NewReader(example))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(u.Source.Source, []byte(`%include "coki_runtime.inc"`)))
	assert.Nil(t, u.Code)
}
