package cmd

import "math"

// Exit codes for the testwave driver
const (
	// ExitSuccess indicates all tests passed (or help was requested)
	ExitSuccess = 0

	// ExitRecognizedFailure is returned for recognized fatal errors:
	// bad option syntax, unreadable config files, history-db failures
	ExitRecognizedFailure = math.MaxInt32 - 1

	// ExitUnknownFailure is returned when a panic reaches the top level
	ExitUnknownFailure = math.MaxInt32 - 2
)
