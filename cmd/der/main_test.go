package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/runtime"
	"github.com/wippyai/der-runtime/value"
)

func writeFile(t *testing.T, p *format.Program) string {
	t.Helper()
	data, err := format.Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "prog.der")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// greeting prints "Hello, <arg0>" and returns [nil, arg0].
func greeting() *format.Program {
	p := format.NewProgram()
	p.AddNode(format.NewNode(format.OpConstString, 1).WithArgs(p.Constants.AddString("Hello,")))
	p.AddNode(format.NewNode(format.OpConstInt, 2).WithArgs(p.Constants.AddInt(0)))
	p.AddNode(format.NewNode(format.OpLoadArg, 3).WithArgs(2))
	p.AddNode(format.NewNode(format.OpPrint, 4).WithArgs(1, 3))
	p.AddNode(format.NewNode(format.OpCreateArray, 5).WithArgs(4, 3))
	p.SetEntryPoint(5)
	return p
}

// arithmetic computes (2 + 3) * 4 with a dead node and a duplicate constant.
func arithmetic() *format.Program {
	p := format.NewProgram()
	p.AddNode(format.NewNode(format.OpConstInt, 1).WithArgs(p.Constants.AddInt(2)))
	p.AddNode(format.NewNode(format.OpConstInt, 2).WithArgs(p.Constants.AddInt(3)))
	p.AddNode(format.NewNode(format.OpAdd, 3).WithArgs(1, 2))
	p.AddNode(format.NewNode(format.OpConstInt, 4).WithArgs(p.Constants.AddInt(4)))
	p.AddNode(format.NewNode(format.OpMul, 5).WithArgs(3, 4))
	p.AddNode(format.NewNode(format.OpConstInt, 6).WithArgs(p.Constants.AddInt(2)))
	p.AddNode(format.NewNode(format.OpPrint, 7).WithArgs(5))
	p.SetEntryPoint(7)
	return p
}

func TestParseArg(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"2.5", 2.5},
		{"true", true},
		{"false", false},
		{"nil", nil},
		{"World", "World"},
		{`"42"`, "42"},
		{`"two words"`, "two words"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseArg(tt.in); got != tt.want {
				t.Errorf("parseArg(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitArgs(t *testing.T) {
	got := splitArgs(`1  "a b" nil`)
	want := []string{"1", `"a b"`, "nil"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("splitArgs = %q, want %q", got, want)
	}
}

func TestRunCommand(t *testing.T) {
	path := writeFile(t, greeting())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "text", args: []string{"-arg", "World", path}, want: "Hello, World\n=> [nil, World]\n"},
		{name: "int argument", args: []string{"-arg", "7", path}, want: "Hello, 7\n=> [nil, 7]\n"},
		{name: "grant", args: []string{"-grant", "network,filesystem", "-arg", "x", path}, want: "Hello, x\n=> [nil, x]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := cmdRun(tt.args, &stdout, &stderr); err != nil {
				t.Fatalf("run: %v (%s)", err, stderr.String())
			}
			if stdout.String() != tt.want {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.want)
			}
		})
	}
}

func TestRunCommandCBOR(t *testing.T) {
	p := arithmetic()
	p.SetEntryPoint(5)
	path := writeFile(t, p)

	var stdout, stderr bytes.Buffer
	if err := cmdRun([]string{"-format", "cbor", path}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	got, err := value.UnmarshalCBOR(stdout.Bytes())
	if err != nil {
		t.Fatalf("UnmarshalCBOR: %v", err)
	}
	if !value.Equal(got, value.Int(20)) {
		t.Errorf("result = %v, want 20", got)
	}
}

func TestRunCommandErrors(t *testing.T) {
	path := writeFile(t, greeting())
	dir := t.TempDir()
	badConfig := filepath.Join(dir, "der.toml")
	if err := os.WriteFile(badConfig, []byte("stack = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{name: "no file", args: nil},
		{name: "missing file", args: []string{filepath.Join(dir, "nope.der")}},
		{name: "bad format", args: []string{"-format", "json", path}},
		{name: "bad capability", args: []string{"-grant", "teleport", path}},
		{name: "bad config", args: []string{"-config", badConfig, path}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := cmdRun(tt.args, &stdout, &stderr); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestInspectCommand(t *testing.T) {
	p := greeting()
	p.RequireCapability(format.CapNetwork)
	p.AddTrait(format.Trait{Name: "Greets", Preconditions: []string{"argc >= 1"}})
	path := writeFile(t, p)

	var stdout, stderr bytes.Buffer
	if err := cmdInspect([]string{path}, &stdout, &stderr); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{
		`magic    "DER!"`,
		"version  1.0",
		"entry    %5",
		"requires Network",
		"trait    Greets",
		"pre    argc >= 1",
		`.str[0]   "Hello,"`,
		"Nodes (5)",
		"%4 = Print %1, %3",
		"<- entry",
		"00000000  44 45 52 21",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("styled output written to a non-terminal")
	}
}

func TestOptimizeCommand(t *testing.T) {
	path := writeFile(t, arithmetic())

	var stdout, stderr bytes.Buffer
	if err := cmdOptimize([]string{path}, &stdout, &stderr); err != nil {
		t.Fatalf("optimize: %v", err)
	}
	out := outputPath(path, "_optimized.der")
	if !strings.Contains(stdout.String(), "wrote "+out) {
		t.Errorf("stdout = %q", stdout.String())
	}

	p, err := readProgram(out)
	if err != nil {
		t.Fatalf("read optimized: %v", err)
	}
	if len(p.Nodes) != 2 {
		t.Errorf("optimized nodes = %d, want 2", len(p.Nodes))
	}

	stdout.Reset()
	if err := cmdRun([]string{out}, &stdout, &stderr); err != nil {
		t.Fatalf("run optimized: %v", err)
	}
	if stdout.String() != "20\n=> nil\n" {
		t.Errorf("optimized run = %q", stdout.String())
	}

	if err := cmdOptimize([]string{"-passes", "inline", path}, &stdout, &stderr); err == nil {
		t.Error("unknown pass accepted")
	}
}

func TestWasmCommand(t *testing.T) {
	path := writeFile(t, arithmetic())
	dst := filepath.Join(t.TempDir(), "out.wasm")

	var stdout, stderr bytes.Buffer
	if err := cmdWasm([]string{"-o", dst, "-run", path}, &stdout, &stderr); err != nil {
		t.Fatalf("wasm: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x00asm")) {
		t.Errorf("module header = % x", data[:4])
	}
	if !strings.HasSuffix(stdout.String(), "20\n=> nil\n") {
		t.Errorf("stdout = %q", stdout.String())
	}

	if err := cmdWasm([]string{writeFile(t, greeting())}, &stdout, &stderr); err == nil {
		t.Error("string program lowered")
	}
}

func TestInteractiveModel(t *testing.T) {
	path := writeFile(t, greeting())
	m := newInteractiveModel(path, runtime.DefaultConfig(), []string{"World"})

	m.Update(m.loadProgram())
	if m.err != nil {
		t.Fatalf("load: %v", m.err)
	}
	if m.selected != 4 {
		t.Errorf("selected = %d, want the entry at 4", m.selected)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter did not evaluate")
	}
	m.Update(cmd())
	if m.state != stateShowResult {
		t.Fatalf("state = %d", m.state)
	}
	if m.result.err != nil || m.result.id != 4 || m.result.output != "Hello, World\n" || m.result.result != "nil (nil)" {
		t.Errorf("result = %+v", m.result)
	}
	if !strings.Contains(m.View(), "Hello, World") {
		t.Errorf("view:\n%s", m.View())
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	if m.state != stateInputArgs {
		t.Fatalf("state = %d, want input", m.state)
	}
	m.input.SetValue(`"DER runtime"`)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.args) != 1 || m.args[0] != `"DER runtime"` {
		t.Fatalf("args = %q", m.args)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	m.Update(cmd())
	if m.result.id != 5 || m.result.result != "[nil, DER runtime] (array)" {
		t.Errorf("entry result = %+v", m.result)
	}
}
