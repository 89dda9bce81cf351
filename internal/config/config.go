// Package config holds the tunable limits of the string heap: overall
// heap budget, external-memory budget, and the thresholds the string
// construction policy consults. Limits are loaded from a strand.toml
// manifest or fall back to defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Limits are the runtime memory limits and policy thresholds.
type Limits struct {
	// HeapBytes is the hard cap on bytes charged to the heap itself
	// (cell headers plus inline character payload).
	HeapBytes uint64 `toml:"heap_bytes"`

	// ExternalMemoryBudget caps the external-memory ledger: the sum of
	// all separately allocated string buffers owned by heap objects.
	ExternalMemoryBudget uint64 `toml:"external_memory_budget"`

	// ExternalStringMinSize is the unit count at or above which the
	// construction policy adopts caller storage into an external string
	// instead of copying inline.
	ExternalStringMinSize uint32 `toml:"external_string_min_size"`

	// GCTriggerRatio is the fraction of HeapBytes at which an allocation
	// triggers a collection cycle before failing outright.
	GCTriggerRatio float64 `toml:"gc_trigger_ratio"`
}

type fileLayout struct {
	Runtime Limits `toml:"runtime"`
}

// Default returns the limits used when no manifest is present.
func Default() Limits {
	return Limits{
		HeapBytes:             512 << 20,
		ExternalMemoryBudget:  256 << 20,
		ExternalStringMinSize: 128,
		GCTriggerRatio:        0.85,
	}
}

// Validate reports the first configuration error, if any.
func (l Limits) Validate() error {
	if l.HeapBytes == 0 {
		return errors.New("runtime.heap_bytes must be positive")
	}
	if l.ExternalMemoryBudget == 0 {
		return errors.New("runtime.external_memory_budget must be positive")
	}
	if l.ExternalStringMinSize < 2 {
		// Lengths 0 and 1 are always served by singletons.
		return errors.New("runtime.external_string_min_size must be at least 2")
	}
	if l.GCTriggerRatio <= 0 || l.GCTriggerRatio > 1 {
		return errors.New("runtime.gc_trigger_ratio must be in (0, 1]")
	}
	return nil
}

// Load parses limits from a TOML manifest. Keys omitted in the file keep
// their default values.
func Load(path string) (Limits, error) {
	layout := fileLayout{Runtime: Default()}
	if _, err := toml.DecodeFile(path, &layout); err != nil {
		return Limits{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := layout.Runtime.Validate(); err != nil {
		return Limits{}, fmt.Errorf("%s: %w", path, err)
	}
	return layout.Runtime, nil
}

// Discover walks upward from startDir looking for a strand.toml manifest.
func Discover(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "strand.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}
