package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanderbog/testwave/packages/output"
)

func loadFromString(t *testing.T, content string) *Manifest {
	t.Helper()
	m, err := LoadManifest(writeManifest(t, content))
	require.NoError(t, err)
	return m
}

func findCheck(t *testing.T, checks []output.Check, desc string) output.Check {
	t.Helper()
	for _, c := range checks {
		if c.Desc == desc {
			return c
		}
	}
	t.Fatalf("no check %q in %v", desc, checks)
	return output.Check{}
}

func TestEvaluate_ExitStatus(t *testing.T) {
	m := loadFromString(t, "run: \"true\"\n")

	t.Run("matching exit passes", func(t *testing.T) {
		checks := evaluate(m, &commandResult{exitCode: 0})
		assert.True(t, findCheck(t, checks, "exit status").Passed)
	})

	t.Run("mismatching exit fails", func(t *testing.T) {
		checks := evaluate(m, &commandResult{exitCode: 2})
		c := findCheck(t, checks, "exit status")
		assert.False(t, c.Passed)
		assert.Equal(t, "0", c.Expected)
		assert.Equal(t, "2", c.Actual)
	})
}

func TestEvaluate_Stdout(t *testing.T) {
	m := loadFromString(t, `
run: "echo hello"
expect:
  stdout: "hello"
  stdout_contains: ["ell"]
  stderr_contains: ["warn"]
`)

	checks := evaluate(m, &commandResult{
		stdout: "hello\n",
		stderr: "warn: something\n",
	})

	assert.True(t, findCheck(t, checks, "stdout").Passed, "trailing newline is trimmed")
	assert.True(t, findCheck(t, checks, `stdout contains "ell"`).Passed)
	assert.True(t, findCheck(t, checks, `stderr contains "warn"`).Passed)

	checks = evaluate(m, &commandResult{stdout: "goodbye\n"})
	assert.False(t, findCheck(t, checks, "stdout").Passed)
	assert.False(t, findCheck(t, checks, `stderr contains "warn"`).Passed)
}

func TestEvaluate_JSON(t *testing.T) {
	m := loadFromString(t, `
run: "emit"
expect:
  json:
    status: ok
    items.#: 3
    enabled: true
`)

	stdout := `{"status":"ok","items":[1,2,3],"enabled":true}`
	checks := evaluate(m, &commandResult{stdout: stdout})

	assert.True(t, findCheck(t, checks, "json status").Passed)
	assert.True(t, findCheck(t, checks, "json items.#").Passed)
	assert.True(t, findCheck(t, checks, "json enabled").Passed)

	t.Run("missing path fails", func(t *testing.T) {
		checks := evaluate(m, &commandResult{stdout: `{}`})
		c := findCheck(t, checks, "json status")
		assert.False(t, c.Passed)
		assert.Equal(t, "(missing)", c.Actual)
	})

	t.Run("wrong value fails", func(t *testing.T) {
		checks := evaluate(m, &commandResult{stdout: `{"status":"bad","items":[1],"enabled":false}`})
		assert.False(t, findCheck(t, checks, "json status").Passed)
		assert.False(t, findCheck(t, checks, "json items.#").Passed)
		assert.False(t, findCheck(t, checks, "json enabled").Passed)
	})
}

func TestEvaluate_Schema(t *testing.T) {
	m := loadFromString(t, `
run: "emit"
expect:
  schema: '{"type":"object","required":["id"],"properties":{"id":{"type":"integer"}}}'
`)

	t.Run("valid document", func(t *testing.T) {
		checks := evaluate(m, &commandResult{stdout: `{"id": 7}`})
		assert.True(t, findCheck(t, checks, "stdout matches schema").Passed)
	})

	t.Run("invalid document", func(t *testing.T) {
		checks := evaluate(m, &commandResult{stdout: `{"id": "seven"}`})
		c := findCheck(t, checks, "stdout matches schema")
		assert.False(t, c.Passed)
		assert.Contains(t, c.Actual, "id")
	})

	t.Run("non-json stdout", func(t *testing.T) {
		checks := evaluate(m, &commandResult{stdout: "not json"})
		c := findCheck(t, checks, "stdout matches schema")
		assert.False(t, c.Passed)
		assert.Equal(t, "stdout is not valid JSON", c.Actual)
	})
}

func TestEvaluate_Timeout(t *testing.T) {
	m := loadFromString(t, "run: \"sleep 5\"\ntimeout: 10ms\n")
	checks := evaluate(m, &commandResult{timedOut: true})

	require.Len(t, checks, 1)
	assert.False(t, checks[0].Passed)
	assert.Equal(t, "timed out", checks[0].Actual)
}
