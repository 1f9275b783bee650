package asm

import (
	"fmt"
	"io"
)

/*
Abstract machine instructions produced by the code generator. The set is
closed: every instruction has an Opcode from the list below and at most two
operands. How an instruction is spelled for a particular assembler is the
business of the renderer.

  - Add/Sub/Mul/Div/Mod(Dst, Src) - Dst = Dst op Src.
  - Mov(Dst, Src) - copy Src into Dst.
  - Push(Src), Pop(Dst) - evaluation stack.
  - Out - print the accumulator through the print builtin.
  - Label(Name) - define a jump target.
  - Loop(Name) - decrement RCX and jump to Name unless it reached zero.
  - Cmp(Left, Right) - set flags for the conditional jumps.
  - Je/Ja/Jb/Jne/Jae/Jbe/Jmp(Name) - jumps to a label.
  - Nop - do nothing.
*/

type Opcode int

const (
	OpNop Opcode = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpMov
	OpPush
	OpPop
	OpOut
	OpLabel
	OpLoop
	OpCmp
	OpJe
	OpJa
	OpJb
	OpJne
	OpJae
	OpJbe
	OpJmp
)

var opcodeNames = map[Opcode]string{
	OpNop:   "Nop",
	OpAdd:   "Add",
	OpSub:   "Sub",
	OpMul:   "Mul",
	OpDiv:   "Div",
	OpMod:   "Mod",
	OpMov:   "Mov",
	OpPush:  "Push",
	OpPop:   "Pop",
	OpOut:   "Out",
	OpLabel: "Label",
	OpLoop:  "Loop",
	OpCmp:   "Cmp",
	OpJe:    "Je",
	OpJa:    "Ja",
	OpJb:    "Jb",
	OpJne:   "Jne",
	OpJae:   "Jae",
	OpJbe:   "Jbe",
	OpJmp:   "Jmp",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%d)", int(o))
}

// Arity returns the number of operands the opcode takes. Label-taking
// opcodes have no operands; their target is carried in Instruction.Label.
func (o Opcode) Arity() int {
	switch o {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpMov, OpCmp:
		return 2
	case OpPush, OpPop:
		return 1
	default:
		return 0
	}
}

// HasLabel reports whether the opcode refers to a label by name.
func (o Opcode) HasLabel() bool {
	switch o {
	case OpLabel, OpLoop, OpJe, OpJa, OpJb, OpJne, OpJae, OpJbe, OpJmp:
		return true
	}
	return false
}

type Instruction struct {
	Op    Opcode
	Dst   Operand
	Src   Operand
	Label string
}

func (i Instruction) String() string {
	switch {
	case i.Op.HasLabel():
		return fmt.Sprintf("%s(%s)", i.Op, i.Label)
	case i.Op.Arity() == 2:
		return fmt.Sprintf("%s(%s, %s)", i.Op, i.Dst, i.Src)
	case i.Op == OpPush:
		return fmt.Sprintf("%s(%s)", i.Op, i.Src)
	case i.Op == OpPop:
		return fmt.Sprintf("%s(%s)", i.Op, i.Dst)
	default:
		return i.Op.String()
	}
}

// Operands returns the operands used by the instruction in (dst, src) order.
func (i Instruction) Operands() []Operand {
	switch {
	case i.Op.Arity() == 2:
		return []Operand{i.Dst, i.Src}
	case i.Op == OpPush:
		return []Operand{i.Src}
	case i.Op == OpPop:
		return []Operand{i.Dst}
	}
	return nil
}

type Program struct {
	Instructions []Instruction
}

func (p *Program) Append(instrs ...Instruction) {
	p.Instructions = append(p.Instructions, instrs...)
}

func (p Program) Len() int {
	return len(p.Instructions)
}

func (p Program) Print(writer io.Writer) {
	for i, instr := range p.Instructions {
		fmt.Fprintf(writer, "%4d  %s\n", i, instr)
	}
}

func Add(dst, src Operand) Instruction {
	return Instruction{Op: OpAdd, Dst: dst, Src: src}
}

func Sub(dst, src Operand) Instruction {
	return Instruction{Op: OpSub, Dst: dst, Src: src}
}

func Mul(dst, src Operand) Instruction {
	return Instruction{Op: OpMul, Dst: dst, Src: src}
}

func Div(dst, src Operand) Instruction {
	return Instruction{Op: OpDiv, Dst: dst, Src: src}
}

func Mod(dst, src Operand) Instruction {
	return Instruction{Op: OpMod, Dst: dst, Src: src}
}

func Mov(dst, src Operand) Instruction {
	return Instruction{Op: OpMov, Dst: dst, Src: src}
}

func Cmp(left, right Operand) Instruction {
	return Instruction{Op: OpCmp, Dst: left, Src: right}
}

func Push(src Operand) Instruction {
	return Instruction{Op: OpPush, Src: src}
}

func Pop(dst Operand) Instruction {
	return Instruction{Op: OpPop, Dst: dst}
}

func Out() Instruction {
	return Instruction{Op: OpOut}
}

func Nop() Instruction {
	return Instruction{Op: OpNop}
}

func Label(name string) Instruction {
	return Instruction{Op: OpLabel, Label: name}
}

func Loop(label string) Instruction {
	return Instruction{Op: OpLoop, Label: label}
}

// Jump builds a jump of the given kind (OpJe ... OpJmp) to label.
func Jump(op Opcode, label string) Instruction {
	return Instruction{Op: op, Label: label}
}

func Je(label string) Instruction  { return Jump(OpJe, label) }
func Ja(label string) Instruction  { return Jump(OpJa, label) }
func Jb(label string) Instruction  { return Jump(OpJb, label) }
func Jne(label string) Instruction { return Jump(OpJne, label) }
func Jae(label string) Instruction { return Jump(OpJae, label) }
func Jbe(label string) Instruction { return Jump(OpJbe, label) }
func Jmp(label string) Instruction { return Jump(OpJmp, label) }
