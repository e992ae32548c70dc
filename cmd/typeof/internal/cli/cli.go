// Package cli holds the flags shared by all typeof commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/broady/typeof/internal/config"
	"github.com/broady/typeof/typeofgen"
)

type Globals struct {
	Config  string `help:"Configuration file (default: .typeof.yaml in the working directory)." short:"c" type:"path"`
	Verbose bool   `help:"Log debug output." short:"v"`
	Jobs    int    `help:"Files rewritten concurrently (default: GOMAXPROCS)." short:"j"`
}

// Logger returns a text logger writing to w, at debug level under
// --verbose.
func (g *Globals) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if g.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// LoadConfig reads --config, or the configuration file found in dir, and
// applies --jobs.
func (g *Globals) LoadConfig(dir string) (config.Config, error) {
	var cfg config.Config
	var err error
	if g.Config != "" {
		cfg, err = config.Load(g.Config)
	} else {
		cfg, err = config.LoadDir(dir)
	}
	if err != nil {
		return cfg, err
	}
	if g.Jobs < 0 {
		return cfg, fmt.Errorf("--jobs must not be negative")
	}
	if g.Jobs > 0 {
		cfg.Jobs = g.Jobs
	}
	return cfg, nil
}

// Generator returns a Generator for patterns resolved in dir, configured
// from the flags and the configuration file of dir. An empty dir is the
// working directory. buildFlags follow the configured build flags.
func (g *Globals) Generator(dir string, buildFlags []string, patterns ...string) (*typeofgen.Generator, error) {
	cfgDir := dir
	if cfgDir == "" {
		cfgDir = "."
	}
	cfg, err := g.LoadConfig(cfgDir)
	if err != nil {
		return nil, err
	}
	cfg.BuildFlags = append(cfg.BuildFlags, buildFlags...)
	return typeofgen.FromPackages(patterns...).Dir(dir).WithConfig(cfg).WithLogger(slog.Default()), nil
}

// Context returns a context cancelled on interrupt.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// PrintWarnings writes each warning on its own line.
func PrintWarnings(w io.Writer, warnings []typeofgen.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}
