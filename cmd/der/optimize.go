package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/optimize"
)

func cmdOptimize(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("optimize", stderr)
	var (
		out    = fs.String("o", "", "Output file (default <name>_optimized.der)")
		passes = fs.String("passes", "all", "Comma-separated passes: fold, dce, cse, compact or all")
		check  = fs.Bool("validate", true, "Validate the optimized program before writing it")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := programFile(fs)
	if err != nil {
		return err
	}
	cfg, err := optimize.ParsePasses(*passes)
	if err != nil {
		return err
	}

	p, err := readProgram(path)
	if err != nil {
		return err
	}
	optimized, report := optimize.Optimize(p, cfg)
	if *check {
		if err := format.Validate(optimized); err != nil {
			return fmt.Errorf("optimized program is invalid: %w", err)
		}
	}

	dst := *out
	if dst == "" {
		dst = outputPath(path, "_optimized.der")
	}
	if err := writeProgram(dst, optimized); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\nwrote %s\n", report, dst)
	return nil
}

func readProgram(path string) (*format.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open program: %w", err)
	}
	defer f.Close()
	return format.Read(bufio.NewReader(f))
}

func writeProgram(path string, p *format.Program) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := format.Write(w, p); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}
