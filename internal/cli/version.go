package cli

import (
	"fmt"

	"github.com/vburojevic/adjust/internal/output"
	"github.com/vburojevic/adjust/pkg/adjust"
)

// Version is the CLI build version, set via ldflags.
var Version = adjust.Version

// Commit is the git commit, set via ldflags.
var Commit = "none"

// VersionCmd prints version information
type VersionCmd struct{}

// VersionOutput is the NDJSON form of the version command
type VersionOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	SDKVersion    string `json:"sdk_version"`
}

// Run executes the version command
func (c *VersionCmd) Run(globals *Globals) error {
	if globals.ndjson() {
		return output.NewNDJSONWriter(globals.Stdout).Write(VersionOutput{
			Type:          "version",
			SchemaVersion: output.SchemaVersion,
			Version:       Version,
			Commit:        Commit,
			SDKVersion:    adjust.Version,
		})
	}
	_, err := fmt.Fprintf(globals.Stdout, "adjust version %s (%s), sdk go%s\n", Version, Commit, adjust.Version)
	return err
}
