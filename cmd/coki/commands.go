package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iley/coki/internal/assembler"
	"github.com/iley/coki/internal/cli"
	"github.com/iley/coki/internal/compiler"
	"github.com/iley/coki/internal/logger"
)

type options struct {
	assembler string
	workDir   string
	keep      bool
	timeout   time.Duration
	logLevel  zapcore.Level
	logFormat string
}

func (o *options) opts() []cli.Opt {
	return []cli.Opt{
		cli.NewOpt(&o.assembler, "assembler", assembler.DefaultPath, "NASM-compatible assembler executable"),
		cli.NewOpt(&o.workDir, "work-dir", "", "directory for intermediate files (default: OS temp dir)"),
		cli.NewOpt(&o.keep, "keep", false, "keep intermediate files (.asm, .inc, .bin)"),
		cli.NewOpt(&o.timeout, "timeout", time.Duration(0), "time limit for one assembler run (0 means none)"),
		cli.NewOpt(&o.logLevel, "log-level", zapcore.WarnLevel, "log level: debug, info, warn or error"),
		cli.NewOpt(&o.logFormat, "log-format", "auto", "log format: auto, console, json or logfmt"),
	}
}

func (o *options) newCompiler(stdout, stderr io.Writer) (*compiler.Compiler, error) {
	conf := logger.Config{Format: o.logFormat, Level: o.logLevel}
	log, err := conf.New(stderr)
	if err != nil {
		return nil, err
	}
	return compiler.New(compiler.Config{
		Assembler: &assembler.NASM{
			Path:    o.assembler,
			WorkDir: o.workDir,
			Keep:    o.keep,
			Timeout: o.timeout,
			Logger:  log.With(zap.String("service", "assembler")),
		},
		Output: stdout,
		Logger: log,
	}), nil
}

func newRootCommand() (*cobra.Command, error) {
	var o options
	root, err := cli.NewCommand(viper.New(), &cli.Program{
		Name:  "coki",
		Short: "Compile and run coki programs in-process",
		Opts:  o.opts(),
	})
	if err != nil {
		return nil, err
	}

	root.AddCommand(
		sourceCommand(&o, "run <file.coki>", "Compile a program and run it", runSource),
		sourceCommand(&o, "asm <file.coki>", "Print the NASM source of a program", printAssembly),
		sourceCommand(&o, "ir <file.coki>", "Print the instruction list of a program", printInstructions),
		sourceCommand(&o, "ast <file.coki>", "Print the syntax tree of a program", printSyntaxTree),
	)
	return root, nil
}

type action func(ctx context.Context, c *compiler.Compiler, filename string, src io.Reader, out io.Writer) error

// sourceCommand builds a subcommand taking one source file; "-" reads
// standard input.
func sourceCommand(o *options, use, short string, act action) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.newCompiler(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			filename := args[0]
			var src io.Reader = cmd.InOrStdin()
			if filename == "-" {
				filename = "<stdin>"
			} else {
				f, err := os.Open(filename)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", filename, err)
				}
				defer f.Close()
				src = f
			}
			return act(cmd.Context(), c, filename, src, cmd.OutOrStdout())
		},
	}
}

func runSource(ctx context.Context, c *compiler.Compiler, filename string, src io.Reader, _ io.Writer) error {
	_, err := c.Run(ctx, filename, src)
	return err
}

func printAssembly(_ context.Context, c *compiler.Compiler, filename string, src io.Reader, out io.Writer) error {
	u, err := c.Render(filename, src)
	if err != nil {
		return err
	}
	_, err = out.Write(u.Source.Source)
	return err
}

func printInstructions(_ context.Context, c *compiler.Compiler, filename string, src io.Reader, out io.Writer) error {
	u, err := c.Lower(filename, src)
	if err != nil {
		return err
	}
	u.Instructions.Print(out)
	for _, name := range u.Symbols.Names() {
		offset, _ := u.Symbols.Read(name)
		fmt.Fprintf(out, "; %s @ %#x\n", name, offset)
	}
	return nil
}

func printSyntaxTree(_ context.Context, c *compiler.Compiler, filename string, src io.Reader, out io.Writer) error {
	u, err := c.Parse(filename, src)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, u.AST)
	return nil
}
