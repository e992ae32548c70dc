// Package runner runs the go command over rewritten sources.
//
// The rewritten files never touch the user's tree: they are written to a
// temporary directory and substituted for the originals through the go
// command's -overlay flag.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
)

// Options configures Exec.
type Options struct {
	// Verb is the go subcommand: "build", "test", "vet", "run", "install".
	Verb string

	// Dir is the working directory of the go command.
	Dir string

	// Files maps absolute paths of original files to rewritten contents.
	Files map[string][]byte

	// Args follow the overlay flag, e.g. "-o", "bin/app", "./...".
	Args []string

	// Env is appended to the current environment.
	Env []string

	Stdout io.Writer
	Stderr io.Writer
}

// Overlay is the -overlay file format of the go command.
type Overlay struct {
	Replace map[string]string `json:"Replace"`
}

// WriteOverlay writes files into dir and an overlay.json mapping each
// original path to its copy. It returns the path of overlay.json.
func WriteOverlay(dir string, files map[string][]byte) (string, error) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	ov := Overlay{Replace: make(map[string]string, len(files))}
	for i, p := range paths {
		if !filepath.IsAbs(p) {
			return "", fmt.Errorf("overlay path %q is not absolute", p)
		}
		// Files of different packages may share a base name.
		sub := filepath.Join(dir, strconv.Itoa(i))
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return "", fmt.Errorf("create overlay dir: %w", err)
		}
		dst := filepath.Join(sub, filepath.Base(p))
		if err := os.WriteFile(dst, files[p], 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", dst, err)
		}
		ov.Replace[p] = dst
	}

	data, err := json.Marshal(ov)
	if err != nil {
		return "", fmt.Errorf("marshal overlay: %w", err)
	}
	path := filepath.Join(dir, "overlay.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write overlay: %w", err)
	}
	return path, nil
}

// Command returns the go command for opts using the overlay file at
// overlayPath.
func Command(ctx context.Context, opts Options, overlayPath string) *exec.Cmd {
	args := []string{opts.Verb, "-overlay=" + overlayPath}
	args = append(args, opts.Args...)
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	return cmd
}

// Exec writes the overlay and runs the go command to completion. The
// temporary files are removed afterwards.
func Exec(ctx context.Context, opts Options) error {
	if opts.Verb == "" {
		return fmt.Errorf("no go subcommand")
	}
	tmp, err := os.MkdirTemp("", "typeof-overlay-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	overlay, err := WriteOverlay(tmp, opts.Files)
	if err != nil {
		return err
	}
	cmd := Command(ctx, opts, overlay)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go %s: %w", opts.Verb, err)
	}
	return nil
}
