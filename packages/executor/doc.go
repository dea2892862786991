// Package executor runs individual test files. A test file is a YAML
// manifest naming a command to run plus expectations on its exit
// status and output. The executor owns the debug level that controls
// how much gets reported per test; the CLI driver owns the aggregate
// summary and the exit code.
package executor
