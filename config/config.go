package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bork/repopath"
)

// RelPath is the repository-relative location of the bork configuration file.
const RelPath = ".config/bork.json"

// ErrMalformed indicates the configuration file exists but cannot be used.
// The harness treats this as fatal before any filesystem write.
var ErrMalformed = errors.New("config malformed")

// Config represents the validated bork configuration.
type Config struct {
	// CorrectnessChecker is the repo-relative path of the checker
	// executable. Empty when no checker is configured.
	CorrectnessChecker repopath.RepoPath

	// EditsRequireApproval lists paths whose edits need per-change human
	// approval in addition to specs/ and the checker executable.
	EditsRequireApproval []repopath.RepoPath
}

// fileConfig mirrors the on-disk JSON. Unknown fields are ignored for
// forward compatibility. Pointer fields distinguish absent/null from set.
type fileConfig struct {
	CorrectnessChecker   *string   `json:"correctness-checker"`
	EditsRequireApproval *[]string `json:"edits-require-approval"`
}

// Load reads <root>/.config/bork.json. A missing file is equivalent to an
// empty configuration object.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(RelPath)))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrMalformed, RelPath, err)
	}

	var raw fileConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in %s: %v", ErrMalformed, RelPath, err)
	}

	cfg := &Config{}

	if raw.CorrectnessChecker != nil {
		p, err := repopath.ParseConfigured(*raw.CorrectnessChecker)
		if err != nil {
			return nil, fmt.Errorf("%w: correctness-checker: %v", ErrMalformed, err)
		}
		cfg.CorrectnessChecker = p
	}

	if raw.EditsRequireApproval != nil {
		for _, entry := range *raw.EditsRequireApproval {
			p, err := repopath.ParseConfigured(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: edits-require-approval entry %q: %v", ErrMalformed, entry, err)
			}
			if p.String() == RelPath {
				// The config file itself is already immutable.
				continue
			}
			cfg.EditsRequireApproval = append(cfg.EditsRequireApproval, p)
		}
	}

	return cfg, nil
}

// CheckerConfigured reports whether a correctness checker is configured.
// This decides the loop mode: without a checker the reconciliation runs a
// single iteration.
func (c *Config) CheckerConfigured() bool {
	return c.CorrectnessChecker != ""
}

// RequiresApproval reports whether the given path is listed in
// edits-require-approval.
func (c *Config) RequiresApproval(p repopath.RepoPath) bool {
	for _, entry := range c.EditsRequireApproval {
		if entry == p {
			return true
		}
	}
	return false
}
