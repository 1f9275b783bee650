package main

import (
	"fmt"
	"os"

	"github.com/iley/coki/internal/errors"
)

func main() {
	cmd, err := newRootCommand()
	if err != nil {
		fmt.Fprintf(os.Stderr, "coki: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "coki: %s\n", describe(err))
		os.Exit(1)
	}
}

// describe names the failing stage in front of the message.
func describe(err error) string {
	code := errors.ErrorCode(err)
	if op := errors.ErrorOp(err); op != "" {
		return fmt.Sprintf("%s in %s: %v", code, op, err)
	}
	return fmt.Sprintf("%s: %v", code, err)
}
