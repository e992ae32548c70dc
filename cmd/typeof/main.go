// Command typeof rewrites typeof.Of calls into descriptor literals and runs
// the go command over the result.
//
//	typeof build ./...
//	typeof test -run TestUser ./internal/...
//	typeof gen --out .typeof ./...
//	typeof describe ./internal/app User --format yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/broady/typeof/cmd/typeof/internal/cli"
	"github.com/broady/typeof/cmd/typeof/internal/describe"
	"github.com/broady/typeof/cmd/typeof/internal/gen"
	"github.com/broady/typeof/cmd/typeof/internal/gobuild"
)

type CLI struct {
	cli.Globals

	Build    gobuild.Cmd  `cmd:"" help:"Rewrite typeof.Of calls and run go build." passthrough:""`
	Test     gobuild.Cmd  `cmd:"" help:"Rewrite typeof.Of calls, including tests, and run go test." passthrough:""`
	Vet      gobuild.Cmd  `cmd:"" help:"Rewrite typeof.Of calls and run go vet." passthrough:""`
	Gen      gen.Cmd      `cmd:"" help:"Write rewritten files and an overlay.json to a directory."`
	Describe describe.Cmd `cmd:"" help:"Print the descriptor of a type."`
	Version  VersionCmd   `cmd:"" help:"Print version information."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func newCLI() *CLI {
	return &CLI{
		Build: gobuild.Cmd{Verb: "build"},
		Test:  gobuild.Cmd{Verb: "test"},
		Vet:   gobuild.Cmd{Verb: "vet"},
	}
}

func main() {
	c := newCLI()
	ctx := kong.Parse(c,
		kong.Name("typeof"),
		kong.Description("Compile-time type descriptors for Go."),
		kong.UsageOnError(),
	)
	slog.SetDefault(c.Logger(os.Stderr))
	err := ctx.Run(&c.Globals)
	ctx.FatalIfErrorf(err)
}
