// Package gobuild implements the commands that wrap a go subcommand.
package gobuild

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/broady/typeof/cmd/typeof/internal/cli"
	"github.com/broady/typeof/internal/runner"
	"github.com/broady/typeof/typeofgen"
)

type Cmd struct {
	// Verb is the go subcommand.
	Verb string `kong:"-"`

	Args []string `arg:"" optional:"" help:"Flags and packages passed to the go command."`
}

func (c *Cmd) Run(g *cli.Globals) error {
	ctx, cancel := cli.Context()
	defer cancel()

	gen, inv, err := c.generator(g)
	if err != nil {
		return err
	}
	res, err := gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}
	cli.PrintWarnings(os.Stderr, res.Warnings)
	slog.Debug("typeof: running go", "verb", c.Verb, "files", len(res.Files), "calls", res.Calls())

	return runner.Exec(ctx, runner.Options{
		Verb:   c.Verb,
		Dir:    inv.Dir,
		Files:  res.Contents(),
		Args:   inv.Args,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
}

// generator returns a Generator that loads exactly the files the go
// command will compile.
func (c *Cmd) generator(g *cli.Globals) (*typeofgen.Generator, Invocation, error) {
	inv := Parse(c.Args)
	gen, err := g.Generator(inv.Dir, inv.BuildFlags, inv.Patterns...)
	if err != nil {
		return nil, inv, err
	}
	if c.Verb == "test" {
		gen = gen.WithTests()
	}
	return gen, inv, nil
}

// valueFlags are the go command flags that take a separate value.
var valueFlags = map[string]bool{
	"-C": true, "-o": true, "-p": true, "-tags": true, "-mod": true,
	"-modfile": true, "-asmflags": true, "-gcflags": true, "-ldflags": true,
	"-gccgoflags": true, "-compiler": true, "-installsuffix": true,
	"-buildmode": true, "-pkgdir": true, "-toolexec": true, "-pgo": true,
	"-coverpkg": true, "-covermode": true, "-exec": true,
	"-run": true, "-skip": true, "-bench": true, "-benchtime": true,
	"-count": true, "-cpu": true, "-parallel": true, "-timeout": true,
	"-list": true, "-shuffle": true, "-fuzz": true, "-fuzztime": true,
	"-coverprofile": true, "-cpuprofile": true, "-memprofile": true,
	"-blockprofile": true, "-mutexprofile": true, "-trace": true,
	"-outputdir": true, "-vettool": true,
}

// loaderFlags change which files make up a package. -race, -msan and
// -asan set build tags of their own.
var loaderFlags = map[string]bool{
	"-tags": true, "-mod": true, "-modfile": true,
	"-race": true, "-msan": true, "-asan": true,
}

// Invocation is the argument list of a go command, split for the loader.
type Invocation struct {
	// Dir is the value of -C.
	Dir string

	Patterns []string

	// BuildFlags are the loader flags in -name=value form.
	BuildFlags []string

	// Args are the arguments for the go command without -C, which the go
	// command only accepts as its first flag.
	Args []string
}

// Parse splits the arguments of a go command. Package patterns end at the
// first "--" or at a test binary's -args; the rest is passed through.
func Parse(args []string) Invocation {
	var inv Invocation
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" || a == "-args" || a == "--args" {
			inv.Args = append(inv.Args, args[i:]...)
			return inv
		}
		if !strings.HasPrefix(a, "-") {
			inv.Patterns = append(inv.Patterns, a)
			inv.Args = append(inv.Args, a)
			continue
		}

		name, value, hasValue := strings.Cut("-"+strings.TrimLeft(a, "-"), "=")
		flag := []string{a}
		if !hasValue && valueFlags[name] && i+1 < len(args) {
			i++
			value, hasValue = args[i], true
			flag = append(flag, value)
		}
		switch {
		case name == "-C":
			inv.Dir = value
			continue
		case loaderFlags[name] && hasValue:
			inv.BuildFlags = append(inv.BuildFlags, name+"="+value)
		case loaderFlags[name]:
			inv.BuildFlags = append(inv.BuildFlags, name)
		}
		inv.Args = append(inv.Args, flag...)
	}
	return inv
}
