package engine

import (
	"math"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/value"
)

func arithmetic(op func(a, b float64) float64) handler {
	return func(e *Executor, n format.Node) (value.Value, error) {
		l, r, err := e.args2(n)
		if err != nil {
			return nil, err
		}
		return Arithmetic(l, r, op)
	}
}

// Arithmetic applies op to two numeric operands in float64. Two Ints give
// an Int when the result has no fractional part, a Float otherwise. Any
// Float operand gives a Float.
func Arithmetic(l, r value.Value, op func(a, b float64) float64) (value.Value, error) {
	li, lInt := l.(value.Int)
	ri, rInt := r.(value.Int)
	if lInt && rInt {
		res := op(float64(li), float64(ri))
		if math.IsInf(res, 0) || math.IsNaN(res) || res != math.Trunc(res) {
			return value.Float(res), nil
		}
		return value.Int(saturate(res)), nil
	}

	a, okL := value.Number(l)
	b, okR := value.Number(r)
	if !okL || !okR {
		return nil, operandMismatch("numeric", l, r)
	}
	return value.Float(op(a, b)), nil
}

// saturate converts an integral float64 to int64, clamping at the range ends.
func saturate(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// execDiv checks the divisor before the dividend is evaluated.
func execDiv(e *Executor, n format.Node) (value.Value, error) {
	r, err := e.arg(n, 1)
	if err != nil {
		return nil, err
	}
	switch d := r.(type) {
	case value.Int:
		if d == 0 {
			return nil, errors.DivisionByZero()
		}
	case value.Float:
		if d == 0 {
			return nil, errors.DivisionByZero()
		}
	}

	l, err := e.arg(n, 0)
	if err != nil {
		return nil, err
	}
	return Arithmetic(l, r, func(a, b float64) float64 { return a / b })
}

func execMod(e *Executor, n format.Node) (value.Value, error) {
	l, r, err := e.args2(n)
	if err != nil {
		return nil, err
	}
	a, okL := l.(value.Int)
	b, okR := r.(value.Int)
	if !okL || !okR {
		return nil, operandMismatch("integer", l, r)
	}
	if b == 0 {
		return nil, errors.DivisionByZero()
	}
	return a % b, nil
}

func execEq(e *Executor, n format.Node) (value.Value, error) {
	l, r, err := e.args2(n)
	if err != nil {
		return nil, err
	}
	return value.Bool(value.Equal(l, r)), nil
}

func execNe(e *Executor, n format.Node) (value.Value, error) {
	l, r, err := e.args2(n)
	if err != nil {
		return nil, err
	}
	return value.Bool(!value.Equal(l, r)), nil
}

func ordering(cmp func(a, b float64) bool) handler {
	return func(e *Executor, n format.Node) (value.Value, error) {
		l, r, err := e.args2(n)
		if err != nil {
			return nil, err
		}
		a, okL := value.Number(l)
		b, okR := value.Number(r)
		if !okL || !okR {
			return nil, operandMismatch("numeric", l, r)
		}
		return value.Bool(cmp(a, b)), nil
	}
}

func execAnd(e *Executor, n format.Node) (value.Value, error) {
	l, err := e.arg(n, 0)
	if err != nil {
		return nil, err
	}
	if !value.Truthy(l) {
		return value.Bool(false), nil
	}
	r, err := e.arg(n, 1)
	if err != nil {
		return nil, err
	}
	return value.Bool(value.Truthy(r)), nil
}

func execOr(e *Executor, n format.Node) (value.Value, error) {
	l, err := e.arg(n, 0)
	if err != nil {
		return nil, err
	}
	if value.Truthy(l) {
		return value.Bool(true), nil
	}
	r, err := e.arg(n, 1)
	if err != nil {
		return nil, err
	}
	return value.Bool(value.Truthy(r)), nil
}

func execNot(e *Executor, n format.Node) (value.Value, error) {
	v, err := e.arg(n, 0)
	if err != nil {
		return nil, err
	}
	return value.Bool(!value.Truthy(v)), nil
}

func execXor(e *Executor, n format.Node) (value.Value, error) {
	l, r, err := e.args2(n)
	if err != nil {
		return nil, err
	}
	return value.Bool(value.Truthy(l) != value.Truthy(r)), nil
}

func operandMismatch(expected string, l, r value.Value) error {
	return errors.TypeMismatch(errors.PhaseRuntime, expected,
		value.TypeName(l)+" and "+value.TypeName(r))
}
