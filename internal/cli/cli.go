// Package cli implements the adjust command line: tracking commands that drive
// the SDK against a persistent store, and inspection commands for that store.
package cli

import (
	"io"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/mattn/go-isatty"

	"github.com/vburojevic/adjust/internal/config"
)

// CLI is the kong command model.
type CLI struct {
	Format      string `short:"f" enum:"auto,text,ndjson" default:"${config_format}" help:"Output format (auto picks text on a terminal, ndjson otherwise)"`
	Quiet       bool   `short:"q" help:"Suppress SDK logs"`
	Verbose     bool   `short:"v" help:"Log every package and response"`
	AppToken    string `name:"app-token" default:"${config_app_token}" help:"App token (12 characters)"`
	Environment string `short:"e" enum:"sandbox,production" default:"${config_environment}" help:"Tracking environment"`
	Store       string `enum:"file,sqlite,memory" default:"${config_store}" help:"Store backend"`
	StorePath   string `name:"store-path" default:"${config_store_path}" help:"Store directory (file) or database path (sqlite)"`
	Offline     bool   `help:"Queue packages without delivering them"`

	Session SessionCmd `cmd:"" help:"Start or resume a session"`
	Event   EventCmd   `cmd:"" help:"Track an event"`
	Revenue RevenueCmd `cmd:"" help:"Track revenue in cents"`
	OpenURL OpenURLCmd `cmd:"" name:"open-url" help:"Report an app open from a deep link"`
	Queue   QueueCmd   `cmd:"" help:"List packages waiting for delivery"`
	State   StateCmd   `cmd:"" help:"Show the persisted session state"`
	Enable  EnableCmd  `cmd:"" help:"Switch tracking on or off"`
	Config  ConfigCmd  `cmd:"" help:"Inspect and generate configuration"`
	Schema  SchemaCmd  `cmd:"" help:"Print JSON Schema for NDJSON output"`
	Version VersionCmd `cmd:"" help:"Show version"`
}

// Globals carries resolved flags and configuration into every command.
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
	Clock   clock.Clock
}

// NewGlobalsWithConfig merges parsed flags over cfg. Flags default to the
// config values, so a flag always wins.
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	merged := *cfg
	merged.AppToken = c.AppToken
	merged.Environment = c.Environment
	merged.Store.Backend = c.Store
	merged.Store.Path = c.StorePath
	merged.Offline = cfg.Offline || c.Offline

	return &Globals{
		Format:  resolveFormat(c.Format, os.Stdout),
		Quiet:   c.Quiet,
		Verbose: c.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  &merged,
		Clock:   clock.New(),
	}
}

// resolveFormat maps auto to text on a terminal and ndjson everywhere else.
func resolveFormat(format string, f *os.File) string {
	if format != "auto" && format != "" {
		return format
	}
	if f != nil && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return "text"
	}
	return "ndjson"
}

func (g *Globals) ndjson() bool {
	return g.Format == "ndjson"
}

func (g *Globals) clk() clock.Clock {
	if g.Clock == nil {
		return clock.New()
	}
	return g.Clock
}
