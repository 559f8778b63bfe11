package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/wippyai/der-runtime/wasmgen"
)

func cmdWasm(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("wasm", stderr)
	var (
		out     = fs.String("o", "", "Output file (default <name>.wasm)")
		run     = fs.Bool("run", false, "Run the lowered module with wazero after writing it")
		verbose = fs.Bool("v", false, "Verbose logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := programFile(fs)
	if err != nil {
		return err
	}

	restore, err := setupLogging(*verbose)
	if err != nil {
		return err
	}
	defer restore()

	p, err := readProgram(path)
	if err != nil {
		return err
	}
	mod, err := wasmgen.Lower(p)
	if err != nil {
		return err
	}

	dst := *out
	if dst == "" {
		dst = outputPath(path, ".wasm")
	}
	if err := os.WriteFile(dst, mod.Binary, 0o644); err != nil {
		return fmt.Errorf("write module: %w", err)
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes, %d node functions, result %s)\n",
		dst, len(mod.Binary), mod.Nodes, mod.Result)

	if !*run {
		return nil
	}
	result, err := wasmgen.Run(context.Background(), mod, stdout)
	if err != nil {
		return err
	}
	return writeResult(stdout, result, "text")
}
