package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/der-runtime/format"
)

// dumpBytes bounds the raw hex dump printed before the decoded view.
const dumpBytes = 64

// styler renders with lipgloss only when writing to a terminal.
type styler struct {
	color bool
}

func newStyler(w io.Writer) styler {
	f, ok := w.(*os.File)
	return styler{color: ok && term.IsTerminal(int(f.Fd()))}
}

func (s styler) render(style lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return style.Render(text)
}

func cmdInspect(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", stderr)
	raw := fs.Bool("raw", true, "Include a hex dump of the first bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := programFile(fs)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	p, err := format.Decode(data)
	if err != nil {
		return err
	}

	var b bytes.Buffer
	inspect(&b, newStyler(stdout), path, data, p, *raw)
	_, err = stdout.Write(b.Bytes())
	return err
}

func inspect(w io.Writer, s styler, path string, data []byte, p *format.Program, raw bool) {
	section := func(title string) {
		fmt.Fprintf(w, "\n%s\n", s.render(titleStyle, title))
	}

	fmt.Fprintf(w, "%s %s (%d bytes)\n", s.render(titleStyle, "DER Inspector"), path, len(data))

	h := p.Header
	section("Header")
	fmt.Fprintf(w, "  magic    %q\n", string(h.Magic[:]))
	fmt.Fprintf(w, "  version  %d.%d\n", h.Version>>8, h.Version&0xFF)
	fmt.Fprintf(w, "  flags    0x%04X\n", h.Flags)
	fmt.Fprintf(w, "  chunks   %d\n", h.ChunkCount)

	if raw {
		n := min(len(data), dumpBytes)
		section(fmt.Sprintf("Raw (first %d bytes)", n))
		for _, line := range strings.Split(strings.TrimRight(hex.Dump(data[:n]), "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	m := p.Metadata
	section("Metadata")
	entry := "none"
	if _, ok := p.Node(m.EntryPoint); ok {
		entry = "%" + strconv.FormatUint(uint64(m.EntryPoint), 10)
	}
	fmt.Fprintf(w, "  entry    %s\n", s.render(funcStyle, entry))
	if len(m.Capabilities) > 0 {
		names := make([]string, len(m.Capabilities))
		for i, c := range m.Capabilities {
			names[i] = c.String()
		}
		fmt.Fprintf(w, "  requires %s\n", s.render(typeStyle, strings.Join(names, ", ")))
	}
	for _, t := range m.Traits {
		fmt.Fprintf(w, "  trait    %s\n", s.render(typeStyle, t.Name))
		for _, pre := range t.Preconditions {
			fmt.Fprintf(w, "    pre    %s\n", pre)
		}
		for _, post := range t.Postconditions {
			fmt.Fprintf(w, "    post   %s\n", post)
		}
	}

	c := p.Constants
	section(fmt.Sprintf("Constants (%d)", len(c.Ints)+len(c.Floats)+len(c.Strings)+len(c.Bools)))
	for i, v := range c.Ints {
		fmt.Fprintf(w, "  .int[%d]   %d\n", i, v)
	}
	for i, v := range c.Floats {
		fmt.Fprintf(w, "  .float[%d] %s\n", i, strconv.FormatFloat(v, 'g', -1, 64))
	}
	for i, v := range c.Strings {
		fmt.Fprintf(w, "  .str[%d]   %q\n", i, v)
	}
	for i, v := range c.Bools {
		fmt.Fprintf(w, "  .bool[%d]  %t\n", i, v)
	}

	section(fmt.Sprintf("Nodes (%d)", len(p.Nodes)))
	for i, n := range p.Nodes {
		line := fmt.Sprintf("  [%3d] %-36s %s", i, n.String(), n.Flags)
		if n.ResultID == m.EntryPoint {
			line = s.render(selectedStyle, line+"  <- entry")
		}
		fmt.Fprintln(w, line)
	}
}
