package engine

import (
	"io"
	"os"

	derruntime "github.com/wippyai/der-runtime"
	"github.com/wippyai/der-runtime/async"
)

// DefaultMaxCallDepth bounds the number of nested Call frames.
const DefaultMaxCallDepth = 1000

// Config holds configuration for executor creation
type Config struct {
	// Output receives Print output. Defaults to os.Stdout.
	Output io.Writer

	// Heap backs Alloc, Load, Store and Free. Defaults to a new memory.Manager.
	Heap derruntime.Heap

	// Async is the handle registry. Defaults to a new async.Runtime.
	Async *async.Runtime

	// MaxCallDepth is the maximum number of call frames; 0 means
	// DefaultMaxCallDepth.
	MaxCallDepth int

	// DetectCycles makes re-entry into a node under evaluation an error.
	DetectCycles bool
}

// DefaultConfig returns the configuration used by NewExecutor.
func DefaultConfig() Config {
	return Config{
		Output:       os.Stdout,
		MaxCallDepth: DefaultMaxCallDepth,
		DetectCycles: true,
	}
}
