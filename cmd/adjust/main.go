package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/vburojevic/adjust/internal/cli"
	"github.com/vburojevic/adjust/internal/config"
)

const quickStart = `adjust - attribution tracking from the command line

Quick start:
  adjust config generate -o adjust.yaml   Write a sample config
  adjust session                          Record an app launch
  adjust event abc123 -p key=value        Track an event
  adjust queue                            Show packages waiting for delivery

For help:
  adjust --help                           All commands and flags
  adjust schema                           JSON Schema of the NDJSON output
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid config, using defaults: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Apply config defaults before parsing
	// These will be overridden by CLI flags if specified
	vars := kong.Vars{
		"config_format":      cfg.Format,
		"config_app_token":   cfg.AppToken,
		"config_environment": cfg.Environment,
		"config_store":       cfg.Store.Backend,
		"config_store_path":  cfg.Store.Path,
	}

	ctx := kong.Parse(&c,
		kong.Name("adjust"),
		kong.Description("adjust: track sessions, events and revenue against an attribution collector"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	// Create globals with config fallbacks
	globals := cli.NewGlobalsWithConfig(&c, cfg)
	err = ctx.Run(globals)
	if err != nil {
		os.Exit(1)
	}
}
