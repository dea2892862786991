// Package output renders per-test outcomes to the console. How much is
// printed is driven by the executor's debug level; everything else
// (summary lines, hints) is printed by the CLI driver itself.
package output
