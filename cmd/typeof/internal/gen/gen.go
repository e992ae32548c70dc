// Package gen implements typeof gen.
package gen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/broady/typeof/cmd/typeof/internal/cli"
	"github.com/broady/typeof/typeofgen"
)

type Cmd struct {
	Out      string   `help:"Output directory for rewritten files." short:"o" required:"" type:"path"`
	Tests    bool     `help:"Include test files." short:"t"`
	Packages []string `arg:"" optional:"" help:"Packages to rewrite (default: current directory)."`
}

func (c *Cmd) Run(g *cli.Globals) error {
	ctx, cancel := cli.Context()
	defer cancel()

	gen, err := g.Generator("", nil, c.Packages...)
	if err != nil {
		return err
	}
	if c.Tests {
		gen = gen.WithTests()
	}
	res, err := gen.ToDir(ctx, c.Out)
	if err != nil {
		return fmt.Errorf("gen: %w", err)
	}
	cli.PrintWarnings(os.Stderr, res.Warnings)

	fmt.Printf("✓ %d calls rewritten in %d files\n", res.Calls(), len(res.Files))
	fmt.Printf("✓ go build -overlay %s\n", filepath.Join(c.Out, typeofgen.OverlayFile))
	return nil
}
