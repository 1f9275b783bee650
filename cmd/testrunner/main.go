package main

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iley/coki/internal/assembler"
	"github.com/iley/coki/internal/compiler"
	"github.com/iley/coki/internal/errors"
	"github.com/iley/coki/internal/logger"
)

// TestCase represents a single test case. A case expects either the exact
// program output (.out) or a compile failure whose message contains the
// text of the .err file.
type TestCase struct {
	Name         string
	SourceFile   string
	ExpectedFile string
	ExpectsError bool
}

// discoverTests finds all test cases in the tests directory
func discoverTests(testsDir string) ([]TestCase, error) {
	var tests []TestCase

	err := filepath.WalkDir(testsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(path, ".coki") {
			baseName := strings.TrimSuffix(filepath.Base(path), ".coki")
			for _, golden := range []struct {
				ext         string
				expectsFail bool
			}{{".out", false}, {".err", true}} {
				expectedFile := filepath.Join(filepath.Dir(path), baseName+golden.ext)
				if _, err := os.Stat(expectedFile); err == nil {
					tests = append(tests, TestCase{
						Name:         baseName,
						SourceFile:   path,
						ExpectedFile: expectedFile,
						ExpectsError: golden.expectsFail,
					})
					break
				}
			}
		}

		return nil
	})

	return tests, err
}

// runTest compiles and runs a test program in-process and returns its output
func runTest(c *compiler.Compiler, output *bytes.Buffer, testCase TestCase) (string, error) {
	output.Reset()
	f, err := os.Open(testCase.SourceFile)
	if err != nil {
		return "", err
	}
	defer f.Close()

	_, err = c.Run(context.Background(), testCase.SourceFile, f)
	return output.String(), err
}

// runSingleTest runs a single test case and returns pass/fail status
func runSingleTest(c *compiler.Compiler, output *bytes.Buffer, testCase TestCase) (bool, string) {
	fmt.Printf("Running test %s... ", testCase.Name)

	expected, err := os.ReadFile(testCase.ExpectedFile)
	if err != nil {
		return false, fmt.Sprintf("error reading expected output: %v", err)
	}

	actualOutput, err := runTest(c, output, testCase)
	if testCase.ExpectsError {
		want := strings.TrimSpace(string(expected))
		switch {
		case err == nil:
			return false, fmt.Sprintf("expected an error containing %q, got output %q", want, actualOutput)
		case !strings.Contains(err.Error(), want):
			return false, fmt.Sprintf("error mismatch:\nExpected: %q\nActual:   %q", want, err.Error())
		}
		return true, ""
	}
	if err != nil {
		return false, fmt.Sprintf("%s: %v", errors.ErrorCode(err), err)
	}

	if actualOutput == string(expected) {
		return true, ""
	}
	return false, fmt.Sprintf("output mismatch:\nExpected: %q\nActual:   %q", string(expected), actualOutput)
}

// findTestCase finds a test case by number or path
func findTestCase(tests []TestCase, identifier string) (*TestCase, error) {
	// If identifier is a path, try to match it directly
	if strings.Contains(identifier, "/") || strings.HasSuffix(identifier, ".coki") {
		identifier = strings.TrimSuffix(identifier, ".coki")
		identifier = strings.TrimPrefix(identifier, "tests/")

		for _, test := range tests {
			if test.Name == identifier {
				return &test, nil
			}
		}
		return nil, fmt.Errorf("test not found: %s", identifier)
	}

	// If identifier is just a number, find test that starts with that number
	for _, test := range tests {
		if strings.HasPrefix(test.Name, identifier+"_") || test.Name == identifier {
			return &test, nil
		}
	}

	return nil, fmt.Errorf("test not found: %s", identifier)
}

func main() {
	conf := logger.NewConfig()
	log, err := conf.New(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Discover tests
	testsDir := "tests"
	tests, err := discoverTests(testsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering tests: %v\n", err)
		os.Exit(1)
	}

	if len(tests) == 0 {
		fmt.Println("No tests found in tests/ directory")
		return
	}

	// Sort tests by name for consistent ordering
	sort.Slice(tests, func(i, j int) bool {
		return tests[i].Name < tests[j].Name
	})

	// Check for command line arguments
	var testsToRun []TestCase
	if len(os.Args) > 1 {
		// Run specific test
		testIdentifier := os.Args[1]
		testCase, err := findTestCase(tests, testIdentifier)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		testsToRun = []TestCase{*testCase}
		fmt.Printf("Running specific test: %s\n", testCase.Name)
	} else {
		// Run all tests
		testsToRun = tests
		if len(tests) == 1 {
			fmt.Printf("Found 1 test\n")
		} else {
			fmt.Printf("Found %d tests\n", len(tests))
		}
	}

	var output bytes.Buffer
	asmr := assembler.NewNASM()
	asmr.Logger = log
	c := compiler.New(compiler.Config{
		Assembler: asmr,
		Output:    &output,
		Logger:    log,
	})

	// Run tests
	passed := 0
	failed := 0

	for _, test := range testsToRun {
		success, errorMsg := runSingleTest(c, &output, test)
		if success {
			fmt.Println("PASS")
			passed++
		} else {
			fmt.Printf("FAIL - %s\n", errorMsg)
			failed++
		}
	}

	// Print summary
	if failed == 0 {
		fmt.Printf("Test Results: %d passed. All good!\n", passed)
	} else {
		fmt.Printf("Test Results: %d passed, %d failed\n", passed, failed)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
