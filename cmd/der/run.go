package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wippyai/der-runtime/runtime"
	"github.com/wippyai/der-runtime/value"
)

func cmdRun(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("run", stderr)
	var (
		configFile  = fs.String("config", "", "Runtime config file (.toml, .yaml or .yml)")
		grant       = fs.String("grant", "", "Capabilities to grant (comma-separated, e.g. network,filesystem)")
		outFormat   = fs.String("format", "text", "Result format: text or cbor")
		verbose     = fs.Bool("v", false, "Verbose logging")
		interactive = fs.Bool("i", false, "Interactive mode with TUI")
		hostArgs    argList
	)
	fs.Var(&hostArgs, "arg", "Host argument (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := programFile(fs)
	if err != nil {
		return err
	}
	if *outFormat != "text" && *outFormat != "cbor" {
		return fmt.Errorf("run: unknown format %q (want text or cbor)", *outFormat)
	}

	cfg, err := runConfig(*configFile, *grant)
	if err != nil {
		return err
	}

	if *interactive {
		return runInteractive(path, cfg, hostArgs)
	}

	restore, err := setupLogging(*verbose)
	if err != nil {
		return err
	}
	defer restore()

	cfg.Output = stdout
	ctx := context.Background()

	rt, err := runtime.New(ctx, cfg)
	if err != nil {
		return err
	}
	mod, err := rt.LoadFile(ctx, path)
	if err != nil {
		return err
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	result, err := inst.Run(ctx, parseArgs(hostArgs)...)
	if err != nil {
		return err
	}
	return writeResult(stdout, result, *outFormat)
}

// runConfig loads the config file, if any, and appends granted
// capabilities from the command line.
func runConfig(path, grant string) (*runtime.Config, error) {
	cfg := runtime.DefaultConfig()
	if path != "" {
		loaded, err := runtime.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	for _, name := range strings.Split(grant, ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.Capabilities = append(cfg.Capabilities, name)
		}
	}
	return cfg, nil
}

func writeResult(w io.Writer, v value.Value, outFormat string) error {
	if outFormat == "cbor" {
		data, err := value.MarshalCBOR(v)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	_, err := fmt.Fprintf(w, "=> %s\n", v)
	return err
}
