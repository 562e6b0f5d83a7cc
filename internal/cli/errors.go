package cli

import (
	"errors"

	"github.com/vburojevic/adjust/internal/output"
)

// outputErrorCommon normalizes error emission across commands, respecting
// ndjson vs text formats so scripts always get machine-readable failures.
func outputErrorCommon(globals *Globals, code, message string, hint ...string) error {
	if globals != nil && globals.ndjson() {
		_ = output.NewNDJSONWriter(globals.Stdout).WriteError(code, message, hint...)
	} else if globals != nil {
		h := ""
		if len(hint) > 0 {
			h = hint[0]
		}
		output.NewTextWriter(globals.Stderr).Error(code, message, h)
	}
	return errors.New(message)
}
