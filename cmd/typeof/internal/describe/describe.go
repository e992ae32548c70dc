// Package describe implements typeof describe.
package describe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/broady/typeof/cmd/typeof/internal/cli"
	"github.com/broady/typeof/internal/export"
	"github.com/broady/typeof/typeinfo"
)

type Cmd struct {
	Package string `arg:"" help:"Package declaring the type, as an import path or directory."`
	Type    string `arg:"" help:"Type name."`
	Format  string `help:"Output format." short:"f" enum:"json,yaml,openapi" default:"json"`
}

func (c *Cmd) Run(g *cli.Globals) error {
	ctx, cancel := cli.Context()
	defer cancel()

	gen, err := g.Generator("", nil, c.Package)
	if err != nil {
		return err
	}
	desc, warnings, err := gen.Describe(ctx, c.Package, c.Type)
	if err != nil {
		return fmt.Errorf("describe: %w", err)
	}
	cli.PrintWarnings(os.Stderr, warnings)
	return Write(os.Stdout, desc, c.Format)
}

// Write encodes desc to w in format: "json", "yaml" or "openapi".
func Write(w io.Writer, desc typeinfo.Type, format string) error {
	switch format {
	case "", "json":
		return writeJSON(w, desc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(desc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "openapi":
		return writeJSON(w, export.Document(desc))
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
