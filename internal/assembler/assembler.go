// Package assembler turns rendered units into raw machine code by running an
// external assembler.
package assembler

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iley/coki/internal/codegen/nasm"
	"github.com/iley/coki/internal/errors"
	"github.com/iley/coki/internal/logger"
)

const (
	op = "assembler.Assemble"

	DefaultPath = "nasm"

	sourceName = "unit.asm"
	outputName = "unit.bin"

	// waitDelay bounds how long a killed assembler may hold its output open.
	waitDelay = time.Second
)

// Assembler produces flat machine code from a rendered unit.
type Assembler interface {
	Assemble(ctx context.Context, unit nasm.Unit) ([]byte, error)
}

// NASM runs the nasm executable in a scratch directory, producing a flat
// binary with no headers.
type NASM struct {
	// Path is the assembler executable, looked up in PATH if it has no separator.
	Path string
	// WorkDir is where scratch directories are created. Empty means the OS temp dir.
	WorkDir string
	// Keep leaves the scratch directory in place after assembling.
	Keep bool
	// Timeout bounds a single run of the assembler. Zero means no limit.
	Timeout time.Duration
	Logger  *zap.Logger
}

func NewNASM() *NASM {
	return &NASM{Path: DefaultPath, Logger: zap.NewNop()}
}

// ToolError describes a failed run of the assembler.
type ToolError struct {
	Path     string
	ExitCode int // -1 if the process never exited normally
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Path, e.Err)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " (exit status %d)", e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", s)
	}
	if s := strings.TrimSpace(e.Stdout); s != "" {
		fmt.Fprintf(&b, "\nstdout:\n%s", s)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func (a *NASM) Assemble(ctx context.Context, unit nasm.Unit) (code []byte, err error) {
	log := a.Logger
	if log == nil {
		log = zap.NewNop()
	}
	path := a.Path
	if path == "" {
		path = DefaultPath
	}
	if strings.ContainsRune(path, filepath.Separator) {
		// The assembler runs inside the scratch directory.
		if abs, absErr := filepath.Abs(path); absErr == nil {
			path = abs
		}
	}

	workDir := a.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	dir := filepath.Join(workDir, "coki-"+logger.NewUnitID())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, &errors.Error{Code: errors.EIO, Op: op, Msg: "creating scratch directory", Err: err}
	}
	log = log.With(zap.String("dir", dir))
	if a.Keep {
		defer log.Info("Kept intermediate files")
	} else {
		defer func() {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				err = multierr.Append(err, &errors.Error{Code: errors.EIO, Op: op, Msg: "removing scratch directory", Err: rmErr})
			}
		}()
	}

	for name, content := range unit.Includes {
		if err := writeFile(dir, name, content); err != nil {
			return nil, err
		}
	}
	if err := writeFile(dir, sourceName, unit.Source); err != nil {
		return nil, err
	}

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	args := []string{"-f", "bin", "-i", dir + string(filepath.Separator), "-o", outputName, sourceName}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("Running assembler", zap.String("path", path), zap.Strings("args", args))
	if runErr := cmd.Run(); runErr != nil {
		toolErr := &ToolError{
			Path:     path,
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Err:      runErr,
		}
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			toolErr.Err = ctxErr
		}
		return nil, &errors.Error{Code: errors.ETool, Op: op, Msg: "assembling unit", Err: toolErr}
	}
	if stderr.Len() > 0 {
		log.Warn("Assembler reported warnings", zap.String("stderr", strings.TrimSpace(stderr.String())))
	}

	code, err = os.ReadFile(filepath.Join(dir, outputName))
	if err != nil {
		return nil, &errors.Error{Code: errors.EIO, Op: op, Msg: "reading assembled code", Err: err}
	}
	log.Debug("Assembled unit",
		logger.Size("source", len(unit.Source)),
		logger.Size("code", len(code)))
	return code, nil
}

func writeFile(dir, name string, content []byte) error {
	if name != filepath.Base(name) {
		return errors.Errorf(errors.EInternal, op, "include name %q must not contain a path", name)
	}
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o600); err != nil {
		return &errors.Error{Code: errors.EIO, Op: op, Msg: fmt.Sprintf("writing %s", name), Err: err}
	}
	return nil
}
