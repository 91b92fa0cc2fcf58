// Package project manages podcast projects on disk.
//
// A project is a directory below the projects root:
//
//	projects/<name>/
//	    config/config.yaml
//	    config/credentials/secrets.yaml
//	    scripts/
//	    output/
//
// [Manager.Init] creates the layout with a sample configuration,
// [Manager.List] finds existing projects and [Manager.Load] reads one back.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MrWong99/scriptcast/internal/config"
)

// Layout names.
const (
	DefaultRoot     = "projects"
	ConfigFile      = "config.yaml"
	CredentialsFile = "secrets.yaml"
)

var (
	// ErrNotFound is returned by [Manager.Load] for a project without a
	// config file.
	ErrNotFound = errors.New("project: not found")

	// ErrExists is returned by [Manager.Init] when the project already has a
	// config file.
	ErrExists = errors.New("project: already exists")
)

// Project holds the paths of one project.
type Project struct {
	Name           string
	Dir            string
	ConfigDir      string
	CredentialsDir string
	ScriptsDir     string
	OutputDir      string
}

// ConfigPath returns the path of the project's config file.
func (p Project) ConfigPath() string {
	return filepath.Join(p.ConfigDir, ConfigFile)
}

// CredentialsPath returns the path of the project's credentials file.
func (p Project) CredentialsPath() string {
	return filepath.Join(p.CredentialsDir, CredentialsFile)
}

// Scripts returns the .txt scripts in the scripts directory, sorted.
func (p Project) Scripts() ([]string, error) {
	entries, err := os.ReadDir(p.ScriptsDir)
	if err != nil {
		return nil, fmt.Errorf("project: read scripts: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			out = append(out, filepath.Join(p.ScriptsDir, e.Name()))
		}
	}
	slices.Sort(out)
	return out, nil
}

// ResolveScript returns script unchanged if it exists as given, otherwise its
// path inside the scripts directory.
func (p Project) ResolveScript(script string) string {
	if _, err := os.Stat(script); err == nil || filepath.IsAbs(script) {
		return script
	}
	return filepath.Join(p.ScriptsDir, script)
}

// OutputPath returns the episode path in the output directory for script,
// named after the script with ext (".mp3", ".wav").
func (p Project) OutputPath(script, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(script), filepath.Ext(script))
	return filepath.Join(p.OutputDir, stem+ext)
}

// Manager creates and finds projects below a root directory.
type Manager struct {
	root string
}

// NewManager returns a Manager for root. Empty root uses [DefaultRoot].
func NewManager(root string) *Manager {
	if root == "" {
		root = DefaultRoot
	}
	return &Manager{root: root}
}

// Root returns the projects root directory.
func (m *Manager) Root() string { return m.root }

// Path returns the layout of project name without touching the disk.
func (m *Manager) Path(name string) Project {
	dir := filepath.Join(m.root, name)
	cfg := filepath.Join(dir, "config")
	return Project{
		Name:           name,
		Dir:            dir,
		ConfigDir:      cfg,
		CredentialsDir: filepath.Join(cfg, "credentials"),
		ScriptsDir:     filepath.Join(dir, "scripts"),
		OutputDir:      filepath.Join(dir, "output"),
	}
}

// Init creates the directory layout of project name and writes a sample
// config and credentials file. voices maps voice names to provider voice IDs;
// nil uses two placeholder hosts. Init refuses to overwrite an existing
// project config.
func (m *Manager) Init(name string, voices map[string]string) (Project, error) {
	if err := validName(name); err != nil {
		return Project{}, err
	}
	p := m.Path(name)
	if _, err := os.Stat(p.ConfigPath()); err == nil {
		return Project{}, fmt.Errorf("%w: %s", ErrExists, name)
	}

	for _, dir := range []string{p.Dir, p.ConfigDir, p.CredentialsDir, p.ScriptsDir, p.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Project{}, fmt.Errorf("project: create %s: %w", dir, err)
		}
	}

	cfg, err := SampleConfig(voices)
	if err != nil {
		return Project{}, err
	}
	if err := os.WriteFile(p.ConfigPath(), cfg, 0o644); err != nil {
		return Project{}, fmt.Errorf("project: write config: %w", err)
	}
	if _, err := os.Stat(p.CredentialsPath()); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(p.CredentialsPath(), []byte(sampleCredentials), 0o600); err != nil {
			return Project{}, fmt.Errorf("project: write credentials: %w", err)
		}
	}
	return p, nil
}

// List returns the names of all projects that have a config file, sorted.
// A missing root yields no projects and no error.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project: list: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(m.Path(e.Name()).ConfigPath()); err == nil {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Load reads and validates the config of project name.
func (m *Manager) Load(name string) (Project, *config.Config, error) {
	if err := validName(name); err != nil {
		return Project{}, nil, err
	}
	p := m.Path(name)
	if _, err := os.Stat(p.ConfigPath()); err != nil {
		return Project{}, nil, fmt.Errorf("%w: %s (no %s)", ErrNotFound, name, p.ConfigPath())
	}
	cfg, err := config.Load(p.ConfigPath())
	if err != nil {
		return Project{}, nil, err
	}
	return p, cfg, nil
}

func validName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("project: invalid name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("project: name %q must not contain path separators", name)
	}
	return nil
}
