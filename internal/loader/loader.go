package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.yaml.in/yaml/v3"
)

var (
	// ErrIncompatible marks an instruction pattern that cannot run under
	// this host; continuing execution would corrupt state.
	ErrIncompatible = errors.New("incompatible instruction found")
	// ErrNoEntryType means the module declares no eligible entry type.
	ErrNoEntryType = errors.New("no eligible entry type")
	// ErrMultipleEntryTypes means more than one type carries the entry marker.
	ErrMultipleEntryTypes = errors.New("multiple eligible entry types found")
)

// verdictCacheSize bounds the per-run scan cache. Far above any realistic
// mod count; the bound only guards against pathological directories.
const verdictCacheSize = 512

// Loaded is a scanned, ready-to-activate module.
type Loaded struct {
	Module *Module
	Entry  *TypeDecl
	Report ScanReport
}

// Loader turns portable module files into activatable units.
type Loader struct {
	logger           *log.Logger
	assumeCompatible bool
	verdicts         *lru.Cache[string, *Loaded]
}

// New returns a loader. assumeCompatible controls whether unrecognized
// instruction patterns pass through (logged) or hard-fail the module.
func New(logger *log.Logger, assumeCompatible bool) (*Loader, error) {
	cache, err := lru.New[string, *Loaded](verdictCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating scan cache: %w", err)
	}
	return &Loader{
		logger:           logger,
		assumeCompatible: assumeCompatible,
		verdicts:         cache,
	}, nil
}

// Load reads, decodes, and scans the portable module at path.
//
// Failure modes are distinguishable: I/O or format corruption wraps the
// underlying error; ErrIncompatible names the offending pattern; entry
// lookup fails with ErrNoEntryType or ErrMultipleEntryTypes.
func (l *Loader) Load(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("module could not be loaded: %w", err)
	}

	key := contentHash(data)
	if cached, ok := l.verdicts.Get(key); ok {
		return cached, nil
	}

	var mod Module
	if err := yaml.Unmarshal(data, &mod); err != nil {
		return nil, fmt.Errorf("module could not be loaded: %w", err)
	}
	if mod.Format != FormatVersion {
		return nil, fmt.Errorf("module could not be loaded: unsupported IR format %d", mod.Format)
	}

	report, err := scan(&mod, l.assumeCompatible, l.logger)
	if err != nil {
		return nil, err
	}

	entry, err := findEntry(&mod)
	if err != nil {
		return nil, err
	}

	loaded := &Loaded{Module: &mod, Entry: entry, Report: report}

	// Only fully compatible modules skip the rescan; anything that needed
	// an assumption stays uncached so a flag change takes effect.
	if report.Assumed == 0 {
		l.verdicts.Add(key, loaded)
	}
	return loaded, nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
