package cli

import "time"

// validateFlags centralizes common flag combinations to keep behavior consistent.
func validateFlags(globals *Globals, wait time.Duration) error {
	if globals.Quiet && globals.Verbose {
		return outputErrorCommon(globals, "INVALID_FLAGS", "--quiet cannot be combined with --verbose", "drop one of them")
	}
	if wait < 0 {
		return outputErrorCommon(globals, "INVALID_FLAGS", "--wait must not be negative", "use 0 to return without waiting")
	}
	// an offline run only queues, and a memory store forgets the queue on exit
	if globals.Config.Offline && globals.Config.Store.Backend == "memory" {
		return outputErrorCommon(globals, "INVALID_FLAGS", "--offline with the memory store discards every package", "use --store file or --store sqlite")
	}
	return nil
}
