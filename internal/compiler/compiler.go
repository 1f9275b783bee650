// Package compiler drives a source file through the whole pipeline: parse,
// lower, render, assemble, load and run.
package compiler

import (
	"context"
	"io"
	"os"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iley/coki/internal/asm"
	"github.com/iley/coki/internal/assembler"
	"github.com/iley/coki/internal/ast"
	"github.com/iley/coki/internal/checks"
	"github.com/iley/coki/internal/codegen"
	"github.com/iley/coki/internal/codegen/nasm"
	"github.com/iley/coki/internal/errors"
	"github.com/iley/coki/internal/jit"
	"github.com/iley/coki/internal/layout"
	"github.com/iley/coki/internal/lexer"
	"github.com/iley/coki/internal/logger"
	"github.com/iley/coki/internal/parser"
	"github.com/iley/coki/internal/symtab"
)

type Config struct {
	Assembler assembler.Assembler
	// Backend provides executable memory. Nil means the host backend.
	Backend jit.Backend
	// Output receives what the program prints. Nil means standard output.
	Output io.Writer
	Logger *zap.Logger
	Clock  clock.Clock
}

type Compiler struct {
	assembler assembler.Assembler
	backend   jit.Backend
	output    io.Writer
	logger    *zap.Logger
	clock     clock.Clock
}

func New(cfg Config) *Compiler {
	c := &Compiler{
		assembler: cfg.Assembler,
		backend:   cfg.Backend,
		output:    cfg.Output,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
	}
	if c.assembler == nil {
		c.assembler = assembler.NewNASM()
	}
	if c.backend == nil {
		c.backend = jit.HostBackend()
	}
	if c.output == nil {
		c.output = os.Stdout
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	return c
}

// Unit is one source file carried through compilation.
type Unit struct {
	ID           string
	Filename     string
	AST          *ast.Program
	Instructions asm.Program
	Symbols      *symtab.Table
	Source       nasm.Unit
	Code         []byte
}

// Result is the outcome of running a unit.
type Result struct {
	// Value is what the program returned.
	Value uint64
	// Variables holds the final value of every variable, by name.
	Variables map[string]int64
}

func (c *Compiler) newUnit(filename string) (*Unit, *zap.Logger) {
	u := &Unit{ID: logger.NewUnitID(), Filename: filename}
	return u, c.logger.With(logger.Unit(u.ID), zap.String("file", filename))
}

// Parse reads and parses a whole source file.
func (c *Compiler) Parse(filename string, src io.Reader) (*Unit, error) {
	u, log := c.newUnit(filename)
	if err := c.parse(log, u, src); err != nil {
		return nil, err
	}
	return u, nil
}

// Lower parses the source and generates the instruction list.
func (c *Compiler) Lower(filename string, src io.Reader) (*Unit, error) {
	u, log := c.newUnit(filename)
	if err := c.parse(log, u, src); err != nil {
		return nil, err
	}
	if err := c.lower(log, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Render goes as far as the assembler input.
func (c *Compiler) Render(filename string, src io.Reader) (*Unit, error) {
	u, log := c.newUnit(filename)
	if err := c.parse(log, u, src); err != nil {
		return nil, err
	}
	if err := c.lower(log, u); err != nil {
		return nil, err
	}
	if err := c.render(log, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Compile produces the machine code for a source file.
func (c *Compiler) Compile(ctx context.Context, filename string, src io.Reader) (*Unit, error) {
	u, log := c.newUnit(filename)
	if err := c.parse(log, u, src); err != nil {
		return nil, err
	}
	if err := c.lower(log, u); err != nil {
		return nil, err
	}
	if err := c.render(log, u); err != nil {
		return nil, err
	}
	if err := c.assemble(ctx, log, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Run compiles a source file and executes it once.
func (c *Compiler) Run(ctx context.Context, filename string, src io.Reader) (Result, error) {
	u, err := c.Compile(ctx, filename, src)
	if err != nil {
		return Result{}, err
	}
	return c.Execute(u)
}

// Execute loads the unit's code into a fresh buffer, invokes it and frees
// the buffer again. The buffer is released on every path.
func (c *Compiler) Execute(u *Unit) (res Result, err error) {
	const op = "compiler.Execute"
	log := c.logger.With(logger.Unit(u.ID), zap.String("file", u.Filename))

	log, done := logger.StartStage(log, c.clock, "load")
	pages := layout.PagesFor(len(u.Code))
	buf, err := jit.AllocateWith(c.backend, pages)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		err = multierr.Append(err, buf.Release())
	}()
	if err := buf.Append(u.Code); err != nil {
		return Result{}, err
	}
	program, err := buf.Program()
	if err != nil {
		return Result{}, err
	}
	program.SetOutput(c.output)
	log.Debug("Program loaded",
		zap.Int("pages", pages),
		logger.Size("buffer", buf.Size()),
		logger.Size("code", buf.Len()))
	done()

	log, done = logger.StartStage(log, c.clock, "invoke")
	value, err := program.Invoke()
	if err != nil {
		return Result{}, err
	}
	done()

	res = Result{Value: value, Variables: make(map[string]int64, u.Symbols.Len())}
	for _, name := range u.Symbols.Names() {
		offset, err := u.Symbols.Read(name)
		if err != nil {
			return Result{}, errors.Wrap(err, errors.EInternal, op)
		}
		if res.Variables[name], err = buf.Variable(offset); err != nil {
			return Result{}, err
		}
	}
	log.Debug("Program finished", zap.Uint64("value", value))
	return res, nil
}

func (c *Compiler) parse(log *zap.Logger, u *Unit, src io.Reader) error {
	_, done := logger.StartStage(log, c.clock, "parse")
	program, err := parser.New(lexer.New(src, u.Filename)).ParseProgram()
	if err != nil {
		return &errors.Error{Code: errors.ECompile, Op: "parser.Parse", Err: err}
	}
	u.AST = program
	done()
	return nil
}

func (c *Compiler) lower(log *zap.Logger, u *Unit) error {
	_, done := logger.StartStage(log, c.clock, "check")
	if errs := checks.Run(u.AST); len(errs) > 0 {
		return &errors.Error{Code: errors.ECompile, Op: "checks.Run", Err: multierr.Combine(errs...)}
	}
	done()

	log, done = logger.StartStage(log, c.clock, "codegen")
	instrs, symbols, err := codegen.Generate(u.AST, log)
	if err != nil {
		return err
	}
	u.Instructions = instrs
	u.Symbols = symbols
	log.Debug("Generated instructions",
		zap.Int("instructions", instrs.Len()),
		zap.Int("variables", symbols.Len()))
	done()
	return nil
}

func (c *Compiler) render(log *zap.Logger, u *Unit) error {
	log, done := logger.StartStage(log, c.clock, "render")
	source, err := nasm.Render(u.Instructions, nasm.DefaultConfig(jit.PrintAddress()))
	if err != nil {
		return err
	}
	u.Source = source
	log.Debug("Rendered unit", logger.Size("source", len(source.Source)))
	done()
	return nil
}

func (c *Compiler) assemble(ctx context.Context, log *zap.Logger, u *Unit) error {
	const op = "compiler.Compile"
	log, done := logger.StartStage(log, c.clock, "assemble")
	code, err := c.assembler.Assemble(ctx, u.Source)
	if err != nil {
		return err
	}
	if len(code) > layout.CodeLimit {
		return errors.Errorf(errors.ECompile, op, "program is %d bytes, the code region holds %d", len(code), layout.CodeLimit)
	}
	u.Code = code
	log.Debug("Assembled unit", logger.Size("code", len(code)))
	done()
	return nil
}
