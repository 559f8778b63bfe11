// Package errors provides structured error types for the der-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the expected/actual type names for mismatches, a field
// path for container decoding, the offending value, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindInvalidUTF8).
//		Path("META", "trait", "name").
//		Detail("invalid UTF-8 sequence").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseRuntime, "numeric", "string and int")
//	err := errors.OutOfBounds(errors.PhaseRuntime, 10, 5)
//	err := errors.DivisionByZero()
//
// All errors implement the standard error interface and support errors.Is/As.
// Matching on Kind alone is the common case:
//
//	if errors.IsKind(err, errors.KindDivisionByZero) { ... }
package errors
