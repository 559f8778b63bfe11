package wasmgen

import (
	"context"
	"io"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/value"
)

// printer writes Print output in the interpreter's format. The first write
// error is kept and reported after the call returns.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) write(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

// Run instantiates mod with wazero, calls its entry export and converts
// the result by the module's static result kind. Print output goes to w,
// or os.Stdout when w is nil.
func Run(ctx context.Context, mod *Module, w io.Writer) (value.Value, error) {
	if w == nil {
		w = os.Stdout
	}
	out := &printer{w: w}

	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer r.Close(ctx)

	_, err := r.NewHostModuleBuilder(hostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			out.write(value.Int(int64(stack[0])).String())
		}), []api.ValueType{api.ValueTypeI64}, nil).
		Export("print_int").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			out.write(value.Bool(stack[0] != 0).String())
		}), []api.ValueType{api.ValueTypeI64}, nil).
		Export("print_bool").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, _ []uint64) {
			out.write(value.Nil{}.String())
		}), nil, nil).
		Export("print_nil").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, _ []uint64) {
			out.write(" ")
		}), nil, nil).
		Export("print_space").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, _ []uint64) {
			out.write("\n")
		}), nil, nil).
		Export("print_newline").
		Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLower, errors.KindExternalCall, err, "instantiate host module")
	}

	compiled, err := r.CompileModule(ctx, mod.Binary)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLower, errors.KindInvalidData, err, "compile lowered module")
	}
	inst, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLower, errors.KindExternalCall, err, "instantiate lowered module")
	}

	entry := inst.ExportedFunction(EntryExport)
	if entry == nil {
		return nil, errors.NotFound(errors.PhaseLower, "export", EntryExport)
	}
	results, err := entry.Call(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindExternalCall, err, "call "+EntryExport)
	}
	if out.err != nil {
		return nil, errors.IO(errors.PhaseRuntime, out.err)
	}

	Logger().Debug("ran lowered module",
		zap.Uint32("entry", mod.Entry),
		zap.Uint64("raw", results[0]))
	return resultValue(mod.Result, results[0]), nil
}

func resultValue(kind value.Kind, raw uint64) value.Value {
	switch kind {
	case value.KindInt:
		return value.Int(int64(raw))
	case value.KindBool:
		return value.Bool(raw != 0)
	}
	return value.Nil{}
}
