package runtime

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/der-runtime/engine"
	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/memory"
)

// Config holds runtime configuration. It can be loaded from TOML or YAML.
type Config struct {
	// Output receives Print output. Defaults to os.Stdout.
	Output io.Writer `toml:"-" yaml:"-"`

	// Capabilities lists the capabilities granted to every instance,
	// by name (e.g. "filesystem", "network").
	Capabilities []string `toml:"capabilities" yaml:"capabilities"`

	// MaxCallDepth bounds nested Call frames. Zero means
	// engine.DefaultMaxCallDepth.
	MaxCallDepth int `toml:"max_call_depth" yaml:"max_call_depth"`

	// HeapLimit caps the live bytes of each instance's heap. Zero means
	// memory.DefaultLimit.
	HeapLimit uint64 `toml:"heap_limit" yaml:"heap_limit"`

	// Validate runs format.Validate on every loaded program.
	Validate bool `toml:"validate" yaml:"validate"`

	// DetectCycles fails re-entry into a node under evaluation.
	DetectCycles bool `toml:"detect_cycles" yaml:"detect_cycles"`
}

// DefaultConfig returns the configuration used when New is given nil.
func DefaultConfig() *Config {
	return &Config{
		MaxCallDepth: engine.DefaultMaxCallDepth,
		HeapLimit:    memory.DefaultLimit,
		Validate:     true,
		DetectCycles: true,
	}
}

// LoadConfig reads a configuration file. The format is chosen by extension:
// .toml, or .yaml and .yml. Keys missing from the file keep their defaults;
// unknown keys are an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO(errors.PhaseConfig, err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse "+path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, errors.InvalidInput(errors.PhaseConfig,
				"unknown keys in "+path+": "+strings.Join(keys, ", "))
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse "+path)
		}
	default:
		return nil, errors.InvalidInput(errors.PhaseConfig,
			"unsupported config format "+filepath.Ext(path)+" (want .toml, .yaml or .yml)")
	}

	if _, err := cfg.capabilities(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// capabilities parses the configured capability names.
func (c *Config) capabilities() ([]format.Capability, error) {
	out := make([]format.Capability, 0, len(c.Capabilities))
	for _, name := range c.Capabilities {
		capability, err := format.ParseCapability(name)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "capability "+name)
		}
		out = append(out, capability)
	}
	return out, nil
}
