// Package typeofgen rewrites the typeof.Of calls of Go packages into
// descriptor literals.
//
// The rewritten files are returned in memory or written to a directory
// together with an overlay.json that the go command accepts through its
// -overlay flag:
//
//	res, err := typeofgen.FromPackages("./...").ToDir(ctx, "out")
//	// go build -overlay out/overlay.json ./...
package typeofgen

import (
	"context"
	"encoding/json"
	"fmt"
	"go/types"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/broady/typeof"
	"github.com/broady/typeof/internal/config"
	"github.com/broady/typeof/internal/describe"
	"github.com/broady/typeof/internal/rewrite"
	"github.com/broady/typeof/internal/source"
	"github.com/broady/typeof/typeinfo"
	"github.com/broady/typeof/typeofgen/sink"
)

// OverlayFile is the name of the overlay written by ToDir.
const OverlayFile = "overlay.json"

// Generator rewrites a set of packages. Create one with FromPackages and
// configure it with method chaining.
type Generator struct {
	patterns []string
	dir      string
	tests    bool
	cfg      config.Config
	logger   *slog.Logger
	overlay  map[string][]byte
}

// FromPackages returns a Generator for the packages matching patterns,
// which follow go command syntax. No patterns means ".".
func FromPackages(patterns ...string) *Generator {
	return &Generator{patterns: patterns, cfg: config.Default()}
}

// Dir sets the directory patterns are resolved in.
func (g *Generator) Dir(dir string) *Generator {
	g.dir = dir
	return g
}

// WithTests includes test files.
func (g *Generator) WithTests() *Generator {
	g.tests = true
	return g
}

// WithConfig replaces the configuration.
func (g *Generator) WithConfig(cfg config.Config) *Generator {
	g.cfg = cfg
	return g
}

func (g *Generator) WithLogger(l *slog.Logger) *Generator {
	g.logger = l
	return g
}

// WithOverlay loads files from contents instead of disk. Keys are
// absolute paths.
func (g *Generator) WithOverlay(overlay map[string][]byte) *Generator {
	g.overlay = overlay
	return g
}

// File is one rewritten file.
type File struct {
	// Path is the absolute path of the original file.
	Path string

	// RelPath is Path relative to its module root, slash-separated.
	RelPath string

	Content []byte

	// Calls is the number of rewritten calls.
	Calls int
}

// Warning is a problem found in a declaration that did not stop the rewrite.
type Warning struct {
	Pos     string
	Message string
}

func (w Warning) String() string {
	if w.Pos == "" {
		return w.Message
	}
	return w.Pos + ": " + w.Message
}

// Result is the outcome of a run.
type Result struct {
	// Files are the files that changed, sorted by Path.
	Files []File

	// Overlay maps each original path to the file that replaces it. It is
	// set by ToDir and WriteTo.
	Overlay map[string]string

	Warnings []Warning
}

// Calls returns the total number of rewritten calls.
func (r *Result) Calls() int {
	n := 0
	for _, f := range r.Files {
		n += f.Calls
	}
	return n
}

// Contents maps each original path to its rewritten content.
func (r *Result) Contents() map[string][]byte {
	m := make(map[string][]byte, len(r.Files))
	for _, f := range r.Files {
		m[f.Path] = f.Content
	}
	return m
}

func (g *Generator) log() *slog.Logger {
	if g.logger == nil {
		return slog.Default()
	}
	return g.logger
}

func (g *Generator) load(ctx context.Context) (*source.Program, error) {
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}
	return source.Load(ctx, source.LoadConfig{
		Dir:        g.dir,
		Patterns:   g.patterns,
		Tests:      g.tests || g.cfg.Tests,
		BuildFlags: g.cfg.BuildFlags,
		Overlay:    g.overlay,
		Logger:     g.logger,
	})
}

func (g *Generator) resolver(prog *source.Program) *source.Resolver {
	return source.NewResolver(prog, source.Options{
		ExportedOnly:    g.cfg.ExportedOnly,
		NameTag:         g.cfg.NameTag,
		TagAnnotations:  g.cfg.TagAnnotations,
		DirectivePrefix: g.cfg.DirectivePrefix,
		SentinelPath:    typeof.PackagePath,
		Logger:          g.logger,
	})
}

func (g *Generator) builder(r *source.Resolver) *describe.Builder {
	return &describe.Builder{Resolver: r, Logger: g.logger, MaxDepth: g.cfg.MaxDepth}
}

// Generate rewrites the packages in memory.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	prog, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{}

	dir, ok := prog.Sentinel(typeof.PackagePath)
	if !ok {
		g.log().Debug("typeof: no package imports the sentinel", "patterns", strings.Join(g.patterns, " "))
		return res, nil
	}

	r := g.resolver(prog)
	b := g.builder(r)
	rw := &rewrite.Rewriter{
		Sentinel: rewrite.DefaultSentinel(dir),
		Describer: rewrite.DescriberFunc(func(t types.Type) typeinfo.Type {
			if t == nil {
				return describe.Empty()
			}
			return b.Build(source.NewRef(t))
		}),
		Logger: g.logger,
	}

	files := prog.Files()
	results := make([]rewrite.FileResult, len(files))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.jobs())
	for i, f := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := prog.Source(f.Path)
			if err != nil {
				return err
			}
			fr, err := rw.File(rewrite.Input{
				Fset:   prog.Fset,
				Info:   f.Pkg.TypesInfo,
				Pkg:    f.Pkg.Types,
				Path:   f.Path,
				Syntax: f.Syntax,
				Src:    src,
			})
			if err != nil {
				return fmt.Errorf("rewrite %s: %w", f.Path, err)
			}
			results[i] = fr
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i, fr := range results {
		if !fr.Changed {
			continue
		}
		res.Files = append(res.Files, File{
			Path:    fr.Path,
			RelPath: relPath(files[i], g.dir),
			Content: fr.Content,
			Calls:   fr.Calls,
		})
	}
	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Path < res.Files[j].Path })

	res.Warnings = warnings(r)
	g.log().Debug("typeof: rewrite complete", "files", len(res.Files), "calls", res.Calls(), "warnings", len(res.Warnings))
	return res, nil
}

func (g *Generator) jobs() int {
	if g.cfg.Jobs > 0 {
		return g.cfg.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// relPath returns the path of f relative to its module root, or to dir
// when the module is unknown.
func relPath(f source.File, dir string) string {
	var root string
	if f.Pkg.Module != nil && f.Pkg.Module.Dir != "" {
		root = f.Pkg.Module.Dir
	} else if abs, err := filepath.Abs(dir); err == nil {
		root = abs
	}
	if root != "" {
		if rel, err := filepath.Rel(root, f.Path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(f.Path)
}

// ToDir rewrites the packages and writes the changed files below dir,
// mirroring their module layout, followed by dir/overlay.json.
func (g *Generator) ToDir(ctx context.Context, dir string) (*Result, error) {
	res, err := g.Generate(ctx)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := res.WriteTo(ctx, sink.NewFilesystemSink(abs), abs); err != nil {
		return nil, err
	}
	return res, nil
}

// WriteTo writes the changed files and an overlay to s. root is the
// absolute location s writes to; overlay entries point below it.
func (r *Result) WriteTo(ctx context.Context, s sink.OutputSink, root string) error {
	overlay := make(map[string]string, len(r.Files))
	for _, f := range r.Files {
		if err := s.WriteFile(ctx, f.RelPath, f.Content); err != nil {
			return fmt.Errorf("write %s: %w", f.RelPath, err)
		}
		overlay[f.Path] = filepath.Join(root, filepath.FromSlash(f.RelPath))
	}

	data, err := json.MarshalIndent(struct {
		Replace map[string]string `json:"Replace"`
	}{overlay}, "", "\t")
	if err != nil {
		return fmt.Errorf("marshal overlay: %w", err)
	}
	if err := s.WriteFile(ctx, OverlayFile, append(data, '\n')); err != nil {
		return fmt.Errorf("write overlay: %w", err)
	}
	r.Overlay = overlay
	return nil
}

// Describe returns the descriptor a call site would receive for the named
// type declared in the package with import path pkgPath. When the
// Generator matches a single package, pkgPath may also be the pattern
// that names it, such as a directory.
func (g *Generator) Describe(ctx context.Context, pkgPath, name string) (typeinfo.Type, []Warning, error) {
	prog, err := g.load(ctx)
	if err != nil {
		return typeinfo.Type{}, nil, err
	}
	if prog.Package(pkgPath) == nil && len(prog.Roots) == 1 {
		pkgPath = prog.Roots[0].PkgPath
	}
	r := g.resolver(prog)
	ref, err := r.Lookup(pkgPath, name)
	if err != nil {
		return typeinfo.Type{}, nil, err
	}
	desc := g.builder(r).Build(ref)
	return desc, warnings(r), nil
}

func warnings(r *source.Resolver) []Warning {
	var out []Warning
	for _, w := range r.Warnings() {
		pos := ""
		if w.Pos.IsValid() {
			pos = w.Pos.String()
		}
		out = append(out, Warning{Pos: pos, Message: w.Message})
	}
	return out
}
