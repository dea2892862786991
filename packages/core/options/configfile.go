package options

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// InputFlag is the hidden composing option bare config-file tokens map to.
const InputFlag = "input"

// Entry is a single option occurrence read from a config file, in file
// order. Bare tokens are recorded under the hidden "input" option.
type Entry struct {
	Name  string
	Value string
}

// ReadConfigFile parses a line-oriented config file into ordered option
// entries. The format mirrors the command line: "key = value" sets the
// named option, a bare token is an input file entry. Lines starting
// with '#' and blank lines are ignored.
func ReadConfigFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if key, value, ok := strings.Cut(line, "="); ok {
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)
			if key == "" {
				return nil, fmt.Errorf("%s:%d: missing option name", path, lineno)
			}
			entries = append(entries, Entry{Name: key, Value: value})
			continue
		}

		entries = append(entries, Entry{Name: InputFlag, Value: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return entries, nil
}

// Apply merges config file entries into the flag set. Only options named
// in allowed are recognized; anything else is a usage error. Composing
// options (slice values) accumulate in source order. Scalar options
// follow first-registered-source-wins: a value already set on the
// command line or by an earlier config file is kept and the config
// entry is silently dropped.
func Apply(fs *pflag.FlagSet, entries []Entry, allowed map[string]bool) error {
	for _, e := range entries {
		if !allowed[e.Name] {
			return fmt.Errorf("unrecognized option %q in config file", e.Name)
		}
		f := fs.Lookup(e.Name)
		if f == nil {
			return fmt.Errorf("unrecognized option %q in config file", e.Name)
		}

		if _, composing := f.Value.(pflag.SliceValue); !composing && f.Changed {
			continue
		}
		value := e.Value
		if value == "" && f.Value.Type() == "bool" {
			// switch options may be written without a value, like on
			// the command line
			value = "true"
		}
		if err := fs.Set(e.Name, value); err != nil {
			return fmt.Errorf("option %q: %w", e.Name, err)
		}
	}
	return nil
}
