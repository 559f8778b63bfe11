package runtime

import (
	"bufio"
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
)

// Runtime loads programs and creates instances with a shared configuration.
type Runtime struct {
	cfg  Config
	caps []format.Capability
}

// New creates a runtime. A nil cfg uses DefaultConfig.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Load("create runtime", err)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	caps, err := cfg.capabilities()
	if err != nil {
		return nil, err
	}
	return &Runtime{cfg: *cfg, caps: caps}, nil
}

// Config returns a copy of the runtime configuration.
func (r *Runtime) Config() Config {
	return r.cfg
}

// Granted returns the capabilities granted to every instance.
func (r *Runtime) Granted() []format.Capability {
	return append([]format.Capability(nil), r.caps...)
}

// Load decodes a DER container.
func (r *Runtime) Load(ctx context.Context, data []byte) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Load("load program", err)
	}
	p, err := format.Decode(data)
	if err != nil {
		return nil, errors.Load("decode program", err)
	}
	return r.LoadProgram(p)
}

// LoadFile reads and decodes a DER container from path.
func (r *Runtime) LoadFile(ctx context.Context, path string) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Load("load program", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IO(errors.PhaseLoad, err)
	}
	defer f.Close()

	p, err := format.Read(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Load("decode "+path, err)
	}
	Logger().Debug("loaded program",
		zap.String("path", path),
		zap.Int("nodes", len(p.Nodes)),
		zap.Uint32("entry", p.Metadata.EntryPoint))
	return r.LoadProgram(p)
}

// LoadProgram wraps an in-memory program, validating it when the
// configuration asks for it.
func (r *Runtime) LoadProgram(p *format.Program) (*Module, error) {
	if p == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "nil program")
	}
	if r.cfg.Validate {
		if err := format.Validate(p); err != nil {
			return nil, errors.Load("validate program", err)
		}
	}
	return &Module{runtime: r, program: p}, nil
}
