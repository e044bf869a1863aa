// Package config builds the runtime configuration passed to every component.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Editor identifies a supported editor kind.
type Editor string

const (
	EditorVSCode Editor = "vscode"
	EditorCursor Editor = "cursor"
)

// DisplayName returns the human-readable editor name used in reports.
func (e Editor) DisplayName() string {
	switch e {
	case EditorVSCode:
		return "VS Code"
	case EditorCursor:
		return "Cursor"
	default:
		return string(e)
	}
}

// Editors lists the editor kinds processed per job, in report order.
var Editors = []Editor{EditorVSCode, EditorCursor}

// Config holds everything the migration components need. It is built
// once in main and passed down; components never consult globals.
type Config struct {
	// StorageRoots maps each editor kind to its workspaceStorage directory.
	StorageRoots map[Editor]string

	// NodeBin is the interpreter probed for the native hash strategy.
	NodeBin string

	// SkipGlobs are doublestar patterns the rewriter leaves untouched.
	SkipGlobs []string
}

// fileConfig is the on-disk YAML override shape.
type fileConfig struct {
	Editors map[string]string `yaml:"editors"`
	NodeBin string            `yaml:"node_bin"`
	Skip    []string          `yaml:"skip"`
}

// DefaultSkipGlobs are never rewritten in structured-text mode. The
// live database is handled by the database rewriter; its backup is left
// exactly as the editor wrote it.
var DefaultSkipGlobs = []string{
	"**/state.vscdb",
	"**/state.vscdb.backup",
}

// Default returns the platform configuration for the current OS.
func Default() (*Config, error) {
	roots, err := defaultStorageRoots()
	if err != nil {
		return nil, err
	}
	return &Config{
		StorageRoots: roots,
		NodeBin:      "node",
		SkipGlobs:    append([]string(nil), DefaultSkipGlobs...),
	}, nil
}

// Load returns the platform defaults overridden by the YAML file at
// path. An empty path yields the plain defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	for name, root := range fc.Editors {
		cfg.StorageRoots[Editor(name)] = root
	}
	if fc.NodeBin != "" {
		cfg.NodeBin = fc.NodeBin
	}
	if len(fc.Skip) > 0 {
		cfg.SkipGlobs = append(cfg.SkipGlobs, fc.Skip...)
	}

	return cfg, nil
}

// defaultStorageRoots resolves the workspaceStorage directory for each
// editor kind on the current platform.
func defaultStorageRoots() (map[Editor]string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		appSupport := filepath.Join(home, "Library", "Application Support")
		return map[Editor]string{
			EditorVSCode: filepath.Join(appSupport, "Code", "User", "workspaceStorage"),
			EditorCursor: filepath.Join(appSupport, "Cursor", "User", "workspaceStorage"),
		}, nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return nil, fmt.Errorf("APPDATA is not set")
		}
		return map[Editor]string{
			EditorVSCode: filepath.Join(appData, "Code", "User", "workspaceStorage"),
			EditorCursor: filepath.Join(appData, "Cursor", "User", "workspaceStorage"),
		}, nil
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		cfgDir := filepath.Join(home, ".config")
		return map[Editor]string{
			EditorVSCode: filepath.Join(cfgDir, "Code", "User", "workspaceStorage"),
			EditorCursor: filepath.Join(cfgDir, "Cursor", "User", "workspaceStorage"),
		}, nil
	}
}
