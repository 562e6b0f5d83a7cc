package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vburojevic/adjust/internal/config"
	"github.com/vburojevic/adjust/internal/output"
)

// ConfigCmd groups the configuration subcommands
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"1" help:"Show the effective configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show which config file is loaded"`
	Generate ConfigGenerateCmd `cmd:"" help:"Print a sample adjust.yaml"`
}

// ConfigShowCmd prints the merged configuration
type ConfigShowCmd struct{}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := *globals.Config
	cfg.AppToken = maskToken(cfg.AppToken)

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return outputErrorCommon(globals, "CONFIG_ENCODE", err.Error())
	}

	if globals.ndjson() {
		var fields map[string]interface{}
		if err := yaml.Unmarshal(b, &fields); err != nil {
			return outputErrorCommon(globals, "CONFIG_ENCODE", err.Error())
		}
		fields["type"] = "config"
		fields["schemaVersion"] = output.SchemaVersion
		return output.NewNDJSONWriter(globals.Stdout).Write(fields)
	}

	output.NewTextWriter(globals.Stdout).Heading("Current Configuration:")
	_, err = globals.Stdout.Write(b)
	return err
}

// maskToken keeps the first four characters of a token.
func maskToken(token string) string {
	if len(token) <= 4 {
		return token
	}
	return token[:4] + strings.Repeat("*", len(token)-4)
}

// ConfigPathCmd prints the config file in use
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()

	if globals.ndjson() {
		return output.NewNDJSONWriter(globals.Stdout).Write(map[string]interface{}{
			"type":          "config_path",
			"schemaVersion": output.SchemaVersion,
			"path":          path,
			"found":         path != "",
		})
	}

	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found.")
		fmt.Fprintln(globals.Stdout, "Searched: ./.adjust.yaml, ~/.adjust.yaml, ./adjust.yaml, ~/adjust.yaml, $XDG_CONFIG_HOME/adjust/adjust.yaml, /etc/adjust/adjust.yaml")
		return nil
	}
	fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	return nil
}

const sampleConfig = `# adjust configuration file
# Values here are overridden by ADJUST_* environment variables and flags.

app_token: abc123def456
environment: sandbox        # sandbox or production
base_url: https://app.adjust.io
event_buffering: false
default_tracker: ""
sdk_prefix: ""
offline: false
format: auto                # auto, text or ndjson

log:
  level: info               # verbose, debug, info, warn, error, suppress
  format: console           # console or json

store:
  backend: file             # file, sqlite or memory
  path: ~/.config/adjust
  codec: json               # json or plist

request:
  timeout: 1m

session:
  session_interval: 30m
  subsession_interval: 1s
  timer_interval: 1m

metrics:
  address: ""               # e.g. :9090 serves /metrics while a command runs

device:
  app_name: my-app
  app_version: 1.0.0
`

// ConfigGenerateCmd prints or writes a sample config
type ConfigGenerateCmd struct {
	Output string `short:"o" help:"Write to this file instead of stdout"`
	Force  bool   `help:"Overwrite an existing file"`
}

// Run executes the config generate command
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	if c.Output == "" {
		_, err := fmt.Fprint(globals.Stdout, sampleConfig)
		return err
	}

	if _, err := os.Stat(c.Output); err == nil && !c.Force {
		return outputErrorCommon(globals, "FILE_EXISTS", fmt.Sprintf("%s already exists", c.Output), "pass --force to overwrite")
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return outputErrorCommon(globals, "FILE_STAT", err.Error())
	}
	if err := os.WriteFile(c.Output, []byte(sampleConfig), 0o644); err != nil {
		return outputErrorCommon(globals, "FILE_WRITE", err.Error())
	}

	if globals.ndjson() {
		return output.NewNDJSONWriter(globals.Stdout).Write(map[string]interface{}{
			"type":          "config_generated",
			"schemaVersion": output.SchemaVersion,
			"path":          c.Output,
		})
	}
	fmt.Fprintf(globals.Stdout, "Wrote %s\n", c.Output)
	return nil
}
