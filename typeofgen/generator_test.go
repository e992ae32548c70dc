package typeofgen

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/broady/typeof/internal/config"
	"github.com/broady/typeof/typeinfo"
	"github.com/broady/typeof/typeofgen/sink"
)

const appPkg = "github.com/broady/typeof/typeofgen/testdata/app"

func quiet() *slog.Logger { return slog.New(slog.DiscardHandler) }

func generate(t *testing.T, g *Generator) *Result {
	t.Helper()
	t.Setenv("GOWORK", "off")
	res, err := g.WithLogger(quiet()).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return res
}

func fileByBase(res *Result, base string) (File, bool) {
	for _, f := range res.Files {
		if filepath.Base(f.Path) == base {
			return f, true
		}
	}
	return File{}, false
}

func TestGenerate(t *testing.T) {
	res := generate(t, FromPackages(appPkg))

	if len(res.Files) != 2 {
		t.Fatalf("rewrote %d files, want 2: %+v", len(res.Files), res.Files)
	}
	if res.Files[0].Path > res.Files[1].Path {
		t.Error("files not sorted by path")
	}
	if got := res.Calls(); got != 4 {
		t.Errorf("Calls = %d, want 4", got)
	}
	if _, ok := fileByBase(res, "plain.go"); ok {
		t.Error("plain.go reported as rewritten")
	}

	user, ok := fileByBase(res, "user.go")
	if !ok {
		t.Fatal("user.go not rewritten")
	}
	if user.RelPath != "typeofgen/testdata/app/user.go" {
		t.Errorf("RelPath = %q", user.RelPath)
	}
	for _, want := range []string{
		`var UserInfo = typeinfo.Type{Name: "User", Annotations: typeinfo.Annotations{"Table": {"users"}}`,
		`"Name": {Type: typeinfo.Elem{Basic: typeinfo.String}`,
		`"Email": {Type: typeinfo.Elem{Basic: typeinfo.String}, Annotations: typeinfo.Annotations{}, Modifiers: typeinfo.Modifiers{Optional: true}}`,
		`"github.com/broady/typeof/typeinfo"`,
	} {
		if !strings.Contains(string(user.Content), want) {
			t.Errorf("user.go missing %q:\n%s", want, user.Content)
		}
	}
	if strings.Contains(string(user.Content), `"password"`) {
		t.Error("unexported field described")
	}

	order, _ := fileByBase(res, "order.go")
	if order.Calls != 3 {
		t.Errorf("order.go Calls = %d, want 3", order.Calls)
	}
	if !strings.Contains(string(order.Content), `"Buyer": {Type: typeinfo.Elem{Desc: &typeinfo.Type{Name: "User"`) {
		t.Errorf("order.go has no nested User descriptor:\n%s", order.Content)
	}

	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Message, "invalid directive") {
		t.Fatalf("Warnings = %v, want one invalid directive", res.Warnings)
	}
	if !strings.Contains(res.Warnings[0].String(), "user.go:") {
		t.Errorf("warning %q has no position", res.Warnings[0])
	}
}

func TestGenerateWithTests(t *testing.T) {
	res := generate(t, FromPackages(appPkg).WithTests())
	if _, ok := fileByBase(res, "user_test.go"); !ok {
		t.Fatal("user_test.go not rewritten")
	}
	if got := res.Calls(); got != 5 {
		t.Errorf("Calls = %d, want 5", got)
	}
	seen := make(map[string]bool)
	for _, f := range res.Files {
		if seen[f.Path] {
			t.Errorf("%s reported twice", f.Path)
		}
		seen[f.Path] = true
	}
}

func TestGenerateConfig(t *testing.T) {
	cfg := config.Default()
	cfg.NameTag = "json"
	cfg.TagAnnotations = []string{"validate"}
	cfg.Jobs = 1
	res := generate(t, FromPackages(appPkg).WithConfig(cfg))

	user, _ := fileByBase(res, "user.go")
	for _, want := range []string{`"name": {`, `"email": {`, `"validate": {"required"}`} {
		if !strings.Contains(string(user.Content), want) {
			t.Errorf("user.go missing %q:\n%s", want, user.Content)
		}
	}
}

func TestGenerateInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MaxDepth = 0
	_, err := FromPackages(appPkg).WithConfig(cfg).WithLogger(quiet()).Generate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "MaxDepth") {
		t.Errorf("Generate = %v, want MaxDepth error", err)
	}
}

func TestGenerateNoSentinel(t *testing.T) {
	res := generate(t, FromPackages("github.com/broady/typeof/typeinfo"))
	if len(res.Files) != 0 || res.Calls() != 0 {
		t.Errorf("rewrote %d files", len(res.Files))
	}
}

func TestGenerateIdempotent(t *testing.T) {
	first := generate(t, FromPackages(appPkg))
	second := generate(t, FromPackages(appPkg).WithOverlay(first.Contents()))
	if len(second.Files) != 0 {
		t.Errorf("second run rewrote %d files", len(second.Files))
	}
}

func TestWriteTo(t *testing.T) {
	res := generate(t, FromPackages(appPkg))
	s := sink.NewMemorySink()
	root := filepath.Join(string(filepath.Separator), "out")
	if err := res.WriteTo(context.Background(), s, root); err != nil {
		t.Fatal(err)
	}

	want := []string{OverlayFile, "typeofgen/testdata/app/order.go", "typeofgen/testdata/app/user.go"}
	if got := s.Paths(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Paths = %v, want %v", got, want)
	}

	var overlay struct{ Replace map[string]string }
	if err := json.Unmarshal(s.Get(OverlayFile), &overlay); err != nil {
		t.Fatal(err)
	}
	for _, f := range res.Files {
		if got, want := overlay.Replace[f.Path], filepath.Join(root, filepath.FromSlash(f.RelPath)); got != want {
			t.Errorf("overlay[%s] = %q, want %q", f.Path, got, want)
		}
		if !bytes.Equal(s.Get(f.RelPath), f.Content) {
			t.Errorf("%s content differs", f.RelPath)
		}
	}
	if len(res.Overlay) != len(res.Files) {
		t.Errorf("Overlay has %d entries, want %d", len(res.Overlay), len(res.Files))
	}
}

func TestToDir(t *testing.T) {
	t.Setenv("GOWORK", "off")
	out := t.TempDir()
	res, err := FromPackages(appPkg).WithLogger(quiet()).ToDir(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(out, OverlayFile))
	if err != nil {
		t.Fatal(err)
	}
	var overlay struct{ Replace map[string]string }
	if err := json.Unmarshal(data, &overlay); err != nil {
		t.Fatal(err)
	}
	for orig, repl := range overlay.Replace {
		got, err := os.ReadFile(repl)
		if err != nil {
			t.Fatalf("overlay entry for %s: %v", orig, err)
		}
		if !bytes.Equal(got, res.Contents()[orig]) {
			t.Errorf("%s differs from the result", repl)
		}
	}
}

func TestDescribe(t *testing.T) {
	t.Setenv("GOWORK", "off")
	desc, warnings, err := FromPackages(appPkg).WithLogger(quiet()).Describe(context.Background(), appPkg, "Order")
	if err != nil {
		t.Fatal(err)
	}
	if desc.Name != "Order" {
		t.Errorf("Name = %q", desc.Name)
	}
	if got := desc.PropertyNames(); strings.Join(got, ",") != "Buyer,ID,Lines" {
		t.Errorf("PropertyNames = %v", got)
	}
	if desc.Properties["Lines"].Type.Basic != typeinfo.Array {
		t.Errorf("Lines = %v, want array", desc.Properties["Lines"].Type)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want the nested User directive warning", warnings)
	}

	if _, _, err := FromPackages(appPkg).WithLogger(quiet()).Describe(context.Background(), appPkg, "Missing"); err == nil {
		t.Error("Describe of a missing type succeeded")
	}
}

func TestDescribeByDirectory(t *testing.T) {
	t.Setenv("GOWORK", "off")
	desc, _, err := FromPackages("./testdata/app").WithLogger(quiet()).Describe(context.Background(), "./testdata/app", "User")
	if err != nil {
		t.Fatal(err)
	}
	if !desc.Annotations.Has("Table") {
		t.Errorf("annotations = %v", desc.Annotations)
	}
}
