package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/der-runtime/engine"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/runtime"
	"github.com/wippyai/der-runtime/wasmgen"
)

const usage = `Usage: der <command> [flags] <file.der>

Commands:
  run       execute a program from its entry node
  inspect   show the container, metadata, constants and nodes
  optimize  fold constants, drop dead nodes and merge duplicates
  wasm      lower a program to a core WebAssembly module

Run "der <command> -h" for the flags of a command.
`

type command func(args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"run":      cmdRun,
	"inspect":  cmdInspect,
	"optimize": cmdOptimize,
	"wasm":     cmdWasm,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	name := os.Args[1]
	if name == "-h" || name == "-help" || name == "help" {
		fmt.Fprint(os.Stdout, usage)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "der: unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	if err := cmd(os.Args[2:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet returns a flag set that reports parse errors instead of
// exiting, so commands can be driven from tests.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("der "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// programFile returns the single positional argument.
func programFile(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		fs.Usage()
		return "", fmt.Errorf("%s: expected one program file, got %d arguments", fs.Name(), fs.NArg())
	}
	return fs.Arg(0), nil
}

// setupLogging installs a development logger in every package that logs
// when verbose is set. The returned func flushes it and restores no-op
// loggers.
func setupLogging(verbose bool) (func(), error) {
	if !verbose {
		return func() {}, nil
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	format.SetLogger(l)
	engine.SetLogger(l)
	runtime.SetLogger(l)
	wasmgen.SetLogger(l)
	return func() {
		_ = l.Sync()
		nop := zap.NewNop()
		format.SetLogger(nop)
		engine.SetLogger(nop)
		runtime.SetLogger(nop)
		wasmgen.SetLogger(nop)
	}, nil
}

// argList collects repeated -arg flags.
type argList []string

func (a *argList) String() string { return strings.Join(*a, " ") }

func (a *argList) Set(s string) error {
	*a = append(*a, s)
	return nil
}

// parseArg converts a command-line argument into the Go value handed to
// Instance.Run: integers, then floats, then true/false/nil, then a string.
// Quoting with double quotes forces a string.
func parseArg(s string) any {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if unq, err := strconv.Unquote(s); err == nil {
			return unq
		}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "nil":
		return nil
	}
	return s
}

func parseArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = parseArg(s)
	}
	return out
}

// outputPath derives a sibling path for a command's output file.
func outputPath(in, suffix string) string {
	return strings.TrimSuffix(in, ".der") + suffix
}
