// Package runner drives a pass over the resolved input list: every
// input is handed to the executor in order, failures are counted, and
// per-test durations are collected for the optional timing summary.
package runner
