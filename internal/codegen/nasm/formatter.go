// Package nasm renders asm programs as NASM source for a flat binary.
package nasm

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"runtime"

	"github.com/iley/coki/internal/asm"
	"github.com/iley/coki/internal/errors"
	"github.com/iley/coki/internal/layout"
)

const (
	op = "nasm.Format"

	// RuntimeInclude is the file name the unit includes its runtime support from.
	RuntimeInclude = "coki_runtime.inc"
)

//go:embed coki_runtime.inc
var runtimeInclude []byte

var labelPattern = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

// CallingConvention describes how the print builtin receives its argument.
type CallingConvention struct {
	ArgRegister asm.Register
	// ShadowSpace is reserved below the return address before the call.
	ShadowSpace int
}

var (
	SysV  = CallingConvention{ArgRegister: asm.RDI}
	Win64 = CallingConvention{ArgRegister: asm.RCX, ShadowSpace: 32}
)

// HostConvention returns the convention native code uses on this platform.
func HostConvention() CallingConvention {
	if runtime.GOOS == "windows" {
		return Win64
	}
	return SysV
}

type Config struct {
	OutputOffset int
	PrintAddress uintptr
	Convention   CallingConvention
}

// DefaultConfig returns the configuration for the host with the print builtin at printAddress.
func DefaultConfig(printAddress uintptr) Config {
	return Config{
		OutputOffset: layout.OutputOffset,
		PrintAddress: printAddress,
		Convention:   HostConvention(),
	}
}

// Unit is a complete assembler input: the main source and the files it includes.
type Unit struct {
	Source   []byte
	Includes map[string][]byte
}

// Render formats p as a complete unit.
func Render(p asm.Program, cfg Config) (Unit, error) {
	var source bytes.Buffer
	if err := Format(&source, p, cfg); err != nil {
		return Unit{}, err
	}
	return Unit{
		Source:   source.Bytes(),
		Includes: map[string][]byte{RuntimeInclude: Runtime()},
	}, nil
}

// Runtime returns the text of the runtime support include.
func Runtime() []byte {
	return append([]byte(nil), runtimeInclude...)
}

// Format writes the NASM source of p to out. Nothing is written if any
// instruction cannot be expressed.
func Format(out io.Writer, p asm.Program, cfg Config) error {
	var body bytes.Buffer
	fmt.Fprintf(&body, "%%include \"%s\"\n", RuntimeInclude)
	fmt.Fprintf(&body, "coki_init %d, 0x%016X\n", cfg.OutputOffset, uint64(cfg.PrintAddress))
	for i, instr := range p.Instructions {
		if err := formatInstruction(&body, instr, cfg.Convention); err != nil {
			return &errors.Error{
				Code: errors.ECompile,
				Op:   op,
				Msg:  fmt.Sprintf("instruction %d (%s)", i, instr),
				Err:  err,
			}
		}
	}
	fmt.Fprintf(&body, "coki_exit\n")

	if _, err := out.Write(body.Bytes()); err != nil {
		return errors.Wrap(err, errors.EIO, op)
	}
	return nil
}

func formatInstruction(out io.Writer, instr asm.Instruction, cc CallingConvention) error {
	if instr.Op.HasLabel() && !labelPattern.MatchString(instr.Label) {
		return fmt.Errorf("invalid label %q", instr.Label)
	}
	for _, operand := range instr.Operands() {
		if operand.Kind == asm.OperandNone {
			return fmt.Errorf("missing operand")
		}
	}
	if writesBase(instr) {
		return fmt.Errorf("%s is reserved for the buffer base", asm.Base)
	}

	switch instr.Op {
	case asm.OpAdd, asm.OpSub, asm.OpMov, asm.OpCmp:
		line, err := formatBinary(mnemonics[instr.Op], instr.Dst, instr.Src)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\t%s\n", line)
	case asm.OpMul:
		if instr.Dst.Kind != asm.OperandRegister {
			return fmt.Errorf("multiplication needs a register destination, got %s", instr.Dst)
		}
		switch instr.Src.Kind {
		case asm.OperandImmediate:
			fmt.Fprintf(out, "\timul %s, %s, %d\n", instr.Dst.Reg, instr.Dst.Reg, instr.Src.Imm)
		default:
			fmt.Fprintf(out, "\timul %s, %s\n", instr.Dst.Reg, sized(instr.Src))
		}
	case asm.OpDiv, asm.OpMod:
		if !instr.Dst.IsRegister(asm.RAX) {
			return fmt.Errorf("division needs %s as destination, got %s", asm.RAX, instr.Dst)
		}
		switch {
		case instr.Src.Kind == asm.OperandImmediate:
			return fmt.Errorf("division by an immediate is not supported")
		case instr.Src.IsRegister(asm.RAX) || instr.Src.IsRegister(asm.RDX):
			return fmt.Errorf("divisor cannot be %s", instr.Src.Reg)
		}
		fmt.Fprintf(out, "\tcoki_divide %s\n", sized(instr.Src))
		if instr.Op == asm.OpMod {
			fmt.Fprintf(out, "\tmov rax, rdx\n")
		}
	case asm.OpPush:
		fmt.Fprintf(out, "\tpush %s\n", sized(instr.Src))
	case asm.OpPop:
		if instr.Dst.Kind == asm.OperandImmediate {
			return fmt.Errorf("cannot pop into an immediate")
		}
		fmt.Fprintf(out, "\tpop %s\n", sized(instr.Dst))
	case asm.OpOut:
		formatOutput(out, cc)
	case asm.OpNop:
		fmt.Fprintf(out, "\tnop\n")
	case asm.OpLabel:
		fmt.Fprintf(out, "%s:\n", instr.Label)
	case asm.OpLoop, asm.OpJe, asm.OpJa, asm.OpJb, asm.OpJne, asm.OpJae, asm.OpJbe, asm.OpJmp:
		fmt.Fprintf(out, "\t%s %s\n", mnemonics[instr.Op], instr.Label)
	default:
		return fmt.Errorf("no rendering for %s", instr.Op)
	}
	return nil
}

var mnemonics = map[asm.Opcode]string{
	asm.OpAdd:  "add",
	asm.OpSub:  "sub",
	asm.OpMov:  "mov",
	asm.OpCmp:  "cmp",
	asm.OpLoop: "loop",
	asm.OpJe:   "je",
	asm.OpJa:   "ja",
	asm.OpJb:   "jb",
	asm.OpJne:  "jne",
	asm.OpJae:  "jae",
	asm.OpJbe:  "jbe",
	asm.OpJmp:  "jmp",
}

// formatBinary renders a two-operand instruction. A memory destination
// combined with an immediate gets an explicit qword, since the width cannot
// be inferred from either operand.
func formatBinary(mnemonic string, dst, src asm.Operand) (string, error) {
	switch {
	case dst.Kind == asm.OperandImmediate:
		return "", fmt.Errorf("%s into an immediate", mnemonic)
	case dst.IsMemory() && src.IsMemory():
		return "", fmt.Errorf("%s between two memory operands", mnemonic)
	case dst.IsMemory() && src.Kind == asm.OperandImmediate:
		return fmt.Sprintf("%s qword %s, %d", mnemonic, argToString(dst), src.Imm), nil
	}
	return fmt.Sprintf("%s %s, %s", mnemonic, argToString(dst), argToString(src)), nil
}

// formatOutput emits the call into the print builtin. Every register the
// sequence touches is saved and restored, the accumulator included, and the
// stack is aligned to 16 bytes around the call.
func formatOutput(out io.Writer, cc CallingConvention) {
	arg := cc.ArgRegister
	fmt.Fprintf(out, "\t; output\n")
	fmt.Fprintf(out, "\tpush rax\n")
	fmt.Fprintf(out, "\tpush %s\n", arg)
	fmt.Fprintf(out, "\tpush r10\n")
	fmt.Fprintf(out, "\tmov [r15 + COKI_OUTPUT_OFFSET], rax\n")
	fmt.Fprintf(out, "\tmov %s, [r15 + COKI_OUTPUT_OFFSET]\n", arg)
	fmt.Fprintf(out, "\tmov r10, COKI_PRINT\n")
	fmt.Fprintf(out, "\tpush rbp\n")
	fmt.Fprintf(out, "\tmov rbp, rsp\n")
	fmt.Fprintf(out, "\tand rsp, -16\n")
	if cc.ShadowSpace > 0 {
		fmt.Fprintf(out, "\tsub rsp, %d\n", cc.ShadowSpace)
	}
	fmt.Fprintf(out, "\tcall r10\n")
	fmt.Fprintf(out, "\tmov rsp, rbp\n")
	fmt.Fprintf(out, "\tpop rbp\n")
	fmt.Fprintf(out, "\tpop r10\n")
	fmt.Fprintf(out, "\tpop %s\n", arg)
	fmt.Fprintf(out, "\tpop rax\n")
}

// sized renders a lone operand, qualifying memory with its width.
func sized(arg asm.Operand) string {
	if arg.IsMemory() {
		return "qword " + argToString(arg)
	}
	return argToString(arg)
}

func argToString(arg asm.Operand) string {
	switch arg.Kind {
	case asm.OperandRegister:
		return arg.Reg.String()
	case asm.OperandImmediate:
		return fmt.Sprintf("%d", arg.Imm)
	case asm.OperandMemory:
		return fmt.Sprintf("[%s + %d]", asm.Base, arg.Offset)
	case asm.OperandMemoryRegister:
		return fmt.Sprintf("[%s]", arg.Reg)
	}
	panic(fmt.Errorf("invalid arg %#v", arg))
}

func writesBase(instr asm.Instruction) bool {
	switch instr.Op {
	case asm.OpAdd, asm.OpSub, asm.OpMul, asm.OpDiv, asm.OpMod, asm.OpMov, asm.OpPop:
		return instr.Dst.IsRegister(asm.Base)
	}
	return false
}
