package optimize

import (
	"fmt"
	"strings"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
)

// Config selects the passes Optimize runs.
type Config struct {
	Fold      bool
	DeadNodes bool
	CSE       bool
	Compact   bool
}

// DefaultConfig enables every pass.
func DefaultConfig() Config {
	return Config{Fold: true, DeadNodes: true, CSE: true, Compact: true}
}

// ParsePasses builds a Config from a comma-separated list of pass names:
// fold, dce, cse and compact. "all" enables every pass.
func ParsePasses(list string) (Config, error) {
	var cfg Config
	for _, name := range strings.Split(list, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "all":
			cfg = DefaultConfig()
		case "fold":
			cfg.Fold = true
		case "dce":
			cfg.DeadNodes = true
		case "cse":
			cfg.CSE = true
		case "compact":
			cfg.Compact = true
		case "":
		default:
			return Config{}, errors.NotFound(errors.PhaseConfig, "optimizer pass", name)
		}
	}
	return cfg, nil
}

// Report counts what Optimize changed.
type Report struct {
	NodesBefore      int
	NodesAfter       int
	Folded           int
	DeadNodes        int
	Merged           int
	ConstantsDropped int
}

// Changed reports whether any pass modified the program.
func (r Report) Changed() bool {
	return r.Folded+r.DeadNodes+r.Merged+r.ConstantsDropped > 0
}

func (r Report) String() string {
	return fmt.Sprintf("%d -> %d nodes (folded %d, dead %d, merged %d, constants dropped %d)",
		r.NodesBefore, r.NodesAfter, r.Folded, r.DeadNodes, r.Merged, r.ConstantsDropped)
}

// Optimize runs the enabled passes on a copy of p in the order fold, dce,
// cse, compact. p itself is not modified.
func Optimize(p *format.Program, cfg Config) (*format.Program, Report) {
	out := p.Clone()
	r := Report{NodesBefore: len(p.Nodes)}
	if cfg.Fold {
		r.Folded = FoldConstants(out)
	}
	if cfg.DeadNodes {
		r.DeadNodes = EliminateDeadNodes(out)
	}
	if cfg.CSE {
		r.Merged = EliminateCommonSubexpressions(out)
	}
	if cfg.Compact {
		r.ConstantsDropped = CompactConstants(out)
	}
	r.NodesAfter = len(out.Nodes)
	return out, r
}
