package asm

import "fmt"

type Register int

const (
	RAX Register = iota
	RBX
	RCX
	RDX
	RSI
	RDI
	R8
	R10
	R15
)

var registerNames = [...]string{
	RAX: "rax",
	RBX: "rbx",
	RCX: "rcx",
	RDX: "rdx",
	RSI: "rsi",
	RDI: "rdi",
	R8:  "r8",
	R10: "r10",
	R15: "r15",
}

// Binary operations always combine these two registers: the running value
// lives in Accumulator, the newly evaluated operand in Right.
const (
	Accumulator = RAX
	Right       = RBX
	// Base holds the address of the JIT buffer while a program runs.
	Base = R15
)

func (r Register) String() string {
	if r >= 0 && int(r) < len(registerNames) {
		return registerNames[r]
	}
	return fmt.Sprintf("reg%d", int(r))
}

type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandRegister
	OperandImmediate
	OperandMemory         // absolute offset from the buffer base
	OperandMemoryRegister // address held in a register
)

type Operand struct {
	Kind   OperandKind
	Reg    Register
	Imm    int32
	Offset uint32
}

func Reg(r Register) Operand {
	return Operand{Kind: OperandRegister, Reg: r}
}

func Imm(value int32) Operand {
	return Operand{Kind: OperandImmediate, Imm: value}
}

func Mem(offset uint32) Operand {
	return Operand{Kind: OperandMemory, Offset: offset}
}

func MemReg(r Register) Operand {
	return Operand{Kind: OperandMemoryRegister, Reg: r}
}

// IsMemory reports whether the operand refers to memory rather than a
// register or an immediate.
func (o Operand) IsMemory() bool {
	return o.Kind == OperandMemory || o.Kind == OperandMemoryRegister
}

func (o Operand) IsRegister(r Register) bool {
	return o.Kind == OperandRegister && o.Reg == r
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandRegister:
		return o.Reg.String()
	case OperandImmediate:
		return fmt.Sprintf("%d", o.Imm)
	case OperandMemory:
		return fmt.Sprintf("[%d]", o.Offset)
	case OperandMemoryRegister:
		return fmt.Sprintf("[%s]", o.Reg)
	default:
		return "_"
	}
}
