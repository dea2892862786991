package output

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestReporter() (*Reporter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	r := NewReporter(WithStdout(&out), WithStderr(&errOut), WithNoColor(true))
	return r, &out, &errOut
}

func failedReport() *TestReport {
	return &TestReport{
		Name:     "tests/a.wave",
		Passed:   false,
		Duration: 12 * time.Millisecond,
		Checks: []Check{
			{Desc: "exit status", Passed: true, Expected: "0", Actual: "0"},
			{Desc: "stdout", Passed: false, Expected: "hello", Actual: "goodbye"},
		},
		Stdout: "goodbye\n",
	}
}

func passedReport() *TestReport {
	return &TestReport{
		Name:     "tests/b.wave",
		Passed:   true,
		Duration: 3 * time.Millisecond,
		Checks:   []Check{{Desc: "exit status", Passed: true, Expected: "0", Actual: "0"}},
		Stdout:   "hello\n",
	}
}

func TestReporter_Levels(t *testing.T) {
	t.Run("level 0 and 1 print nothing", func(t *testing.T) {
		for _, level := range []int{0, 1} {
			r, out, errOut := newTestReporter()
			r.Test(level, failedReport())
			r.Test(level, passedReport())
			assert.Empty(t, out.String())
			assert.Empty(t, errOut.String())
		}
	})

	t.Run("level 2 prints failed names only", func(t *testing.T) {
		r, out, _ := newTestReporter()
		r.Test(2, failedReport())
		r.Test(2, passedReport())

		assert.Contains(t, out.String(), "tests/a.wave")
		assert.NotContains(t, out.String(), "tests/b.wave")
		assert.NotContains(t, out.String(), "Expected:")
	})

	t.Run("level 3 prints every outcome", func(t *testing.T) {
		r, out, _ := newTestReporter()
		r.Test(3, failedReport())
		r.Test(3, passedReport())

		assert.Contains(t, out.String(), "✗ tests/a.wave")
		assert.Contains(t, out.String(), "✓ tests/b.wave")
	})

	t.Run("level 4 prints expected and actual for failures", func(t *testing.T) {
		r, out, _ := newTestReporter()
		r.Test(4, failedReport())

		assert.Contains(t, out.String(), "stdout")
		assert.Contains(t, out.String(), "Expected: hello")
		assert.Contains(t, out.String(), "Actual:   goodbye")
		assert.NotContains(t, out.String(), "exit status", "passing checks are not detailed")
	})

	t.Run("level 5 prints output of succeeded tests", func(t *testing.T) {
		r, out, _ := newTestReporter()
		r.Test(5, passedReport())

		assert.Contains(t, out.String(), "✓ tests/b.wave")
		assert.Contains(t, out.String(), "hello")
	})

	t.Run("infrastructure errors go to stderr", func(t *testing.T) {
		r, out, errOut := newTestReporter()
		r.Test(2, &TestReport{Name: "bad.wave", Err: errors.New("unreadable")})

		assert.Empty(t, out.String())
		assert.Contains(t, errOut.String(), "bad.wave")
		assert.Contains(t, errOut.String(), "unreadable")
	})
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "short", formatValue("short", 100))
	assert.Equal(t, "a\\nb", formatValue("a\nb", 100))

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	got := formatValue(string(long), 100)
	assert.Len(t, got, 103)
	assert.Contains(t, got, "...")
}
