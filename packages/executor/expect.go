package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sanderbog/testwave/packages/output"
)

// commandResult captures what the test command actually did.
type commandResult struct {
	exitCode int
	stdout   string
	stderr   string
	timedOut bool
	timeout  time.Duration
}

// evaluate compares a command result against the manifest's
// expectations and returns one check per expectation.
func evaluate(m *Manifest, res *commandResult) []output.Check {
	var checks []output.Check

	if res.timedOut {
		checks = append(checks, output.Check{
			Desc:     "command completed",
			Passed:   false,
			Expected: fmt.Sprintf("completion within %s", res.timeout),
			Actual:   "timed out",
		})
		return checks
	}

	checks = append(checks, output.Check{
		Desc:     "exit status",
		Passed:   res.exitCode == m.Expect.ExitCode(),
		Expected: fmt.Sprintf("%d", m.Expect.ExitCode()),
		Actual:   fmt.Sprintf("%d", res.exitCode),
	})

	if m.Expect.Stdout != nil {
		want := strings.TrimRight(*m.Expect.Stdout, "\n")
		got := strings.TrimRight(res.stdout, "\n")
		checks = append(checks, output.Check{
			Desc:     "stdout",
			Passed:   got == want,
			Expected: want,
			Actual:   got,
		})
	}

	for _, substr := range m.Expect.StdoutContains {
		checks = append(checks, output.Check{
			Desc:     fmt.Sprintf("stdout contains %q", substr),
			Passed:   strings.Contains(res.stdout, substr),
			Expected: substr,
			Actual:   res.stdout,
		})
	}

	for _, substr := range m.Expect.StderrContains {
		checks = append(checks, output.Check{
			Desc:     fmt.Sprintf("stderr contains %q", substr),
			Passed:   strings.Contains(res.stderr, substr),
			Expected: substr,
			Actual:   res.stderr,
		})
	}

	if len(m.Expect.JSON) > 0 {
		checks = append(checks, evaluateJSON(m.Expect.JSON, res.stdout)...)
	}

	if m.Expect.Schema != "" {
		checks = append(checks, evaluateSchema(m, res.stdout))
	}

	return checks
}

// evaluateJSON applies gjson path expectations to the command's stdout.
// Paths are checked in sorted order so report output is stable.
func evaluateJSON(expects map[string]any, stdout string) []output.Check {
	paths := make([]string, 0, len(expects))
	for p := range expects {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	checks := make([]output.Check, 0, len(paths))
	for _, path := range paths {
		want := expects[path]
		got := gjson.Get(stdout, path)

		check := output.Check{
			Desc:     fmt.Sprintf("json %s", path),
			Expected: fmt.Sprintf("%v", want),
		}
		if !got.Exists() {
			check.Actual = "(missing)"
		} else {
			check.Actual = got.String()
			check.Passed = jsonValueEqual(got, want)
		}
		checks = append(checks, check)
	}
	return checks
}

// jsonValueEqual compares a gjson result with a YAML-decoded expected
// value, tolerating the int/float mismatch YAML decoding introduces.
func jsonValueEqual(got gjson.Result, want any) bool {
	switch w := want.(type) {
	case bool:
		return got.IsBool() && got.Bool() == w
	case int:
		return got.Type == gjson.Number && got.Num == float64(w)
	case float64:
		return got.Type == gjson.Number && got.Num == w
	case nil:
		return got.Type == gjson.Null
	default:
		return got.String() == fmt.Sprintf("%v", want)
	}
}

// evaluateSchema validates the command's stdout against a JSON Schema.
// The schema is inline when it starts with '{', otherwise it names a
// file relative to the manifest.
func evaluateSchema(m *Manifest, stdout string) output.Check {
	check := output.Check{
		Desc:     "stdout matches schema",
		Expected: "document valid against schema",
	}

	schema := strings.TrimSpace(m.Expect.Schema)
	if !strings.HasPrefix(schema, "{") {
		schemaPath := schema
		if !filepath.IsAbs(schemaPath) {
			schemaPath = filepath.Join(filepath.Dir(m.Path()), schemaPath)
		}
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			check.Actual = fmt.Sprintf("cannot read schema: %v", err)
			return check
		}
		schema = string(data)
	}

	if !json.Valid([]byte(stdout)) {
		check.Actual = "stdout is not valid JSON"
		return check
	}

	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewStringLoader(stdout)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		check.Actual = fmt.Sprintf("schema validation error: %v", err)
		return check
	}

	if result.Valid() {
		check.Passed = true
		check.Actual = "valid"
		return check
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	check.Actual = strings.Join(msgs, "; ")
	return check
}
