package executor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest is a single test file: one command to run and the
// expectations on its outcome.
type Manifest struct {
	Name    string            `yaml:"name,omitempty"`
	Run     string            `yaml:"run"`
	Shell   string            `yaml:"shell,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Stdin   string            `yaml:"stdin,omitempty"`
	Timeout string            `yaml:"timeout,omitempty"`
	Expect  Expect            `yaml:"expect,omitempty"`

	path string
}

// Expect holds the expectations for a test. The zero value expects exit
// status 0 and nothing else.
type Expect struct {
	Exit           *int           `yaml:"exit,omitempty"`
	Stdout         *string        `yaml:"stdout,omitempty"`
	StdoutContains []string       `yaml:"stdout_contains,omitempty"`
	StderrContains []string       `yaml:"stderr_contains,omitempty"`
	JSON           map[string]any `yaml:"json,omitempty"`
	Schema         string         `yaml:"schema,omitempty"`
}

// ExitCode returns the expected exit status, defaulting to 0.
func (e *Expect) ExitCode() int {
	if e.Exit == nil {
		return 0
	}
	return *e.Exit
}

// LoadManifest reads and validates a test manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading test file: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing test file: %w", err)
	}
	m.path = path

	if m.Run == "" {
		return nil, fmt.Errorf("test file %s: missing required field \"run\"", path)
	}
	if m.Timeout != "" {
		if _, err := time.ParseDuration(m.Timeout); err != nil {
			return nil, fmt.Errorf("test file %s: invalid timeout %q: %w", path, m.Timeout, err)
		}
	}
	if m.Name == "" {
		m.Name = path
	}

	return &m, nil
}

// TimeoutOr returns the per-test timeout, or fallback when the manifest
// does not set one. Timeout strings are validated during load.
func (m *Manifest) TimeoutOr(fallback time.Duration) time.Duration {
	if m.Timeout == "" {
		return fallback
	}
	d, err := time.ParseDuration(m.Timeout)
	if err != nil {
		return fallback
	}
	return d
}

// Path returns the file the manifest was loaded from.
func (m *Manifest) Path() string {
	return m.path
}
