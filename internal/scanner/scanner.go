package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bartekus/nbfmt/internal/notebook"
)

// ErrUnsupportedLanguage marks a notebook whose kernel language is not
// accepted. Such notebooks are skipped, not reported.
var ErrUnsupportedLanguage = errors.New("unsupported notebook language")

// Scanner discovers notebooks under a set of root paths.
type Scanner struct {
	opts FilterOptions
	// TrackedOnly restricts directory walks to files tracked by git.
	TrackedOnly bool
	log         *zap.Logger

	mu           sync.Mutex
	trackedCache map[string][]string

	walkDir func(root string, fn fs.WalkDirFunc) error
}

// New creates a Scanner with the given filter options.
func New(opts FilterOptions, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{
		opts:         opts,
		log:          log,
		trackedCache: map[string][]string{},
		walkDir:      filepath.WalkDir,
	}
}

// Discover expands roots into the notebook paths to process. Files named
// explicitly are always included; directories are searched recursively,
// honoring the filter options. Entries below a root that cannot be read
// are included unfiltered so processing reports them as file errors. The
// result is de-duplicated and sorted.
func (s *Scanner) Discover(ctx context.Context, roots []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		var candidates, unreadable []string
		if s.TrackedOnly {
			candidates, err = s.TrackedFiles(ctx, root)
		} else {
			candidates, unreadable, err = s.walk(root)
		}
		if err != nil {
			return nil, err
		}
		for _, p := range unreadable {
			add(p)
		}
		for _, p := range FilterFiles(candidates, s.opts) {
			if err := s.CheckLanguage(p); err != nil {
				s.log.Debug("skipping notebook", zap.String("path", p), zap.Error(err))
				continue
			}
			add(p)
		}
	}

	sort.Strings(out)
	return out, nil
}

// walk lists files under root, pruning excluded directories early. Paths
// below root that fail to read are returned separately instead of
// aborting the walk.
func (s *Scanner) walk(root string) (files, unreadable []string, err error) {
	err = s.walkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.log.Warn("unreadable path", zap.String("path", path), zap.Error(err))
			unreadable = append(unreadable, path)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && s.ExcludesDir(path) {
				s.log.Debug("excluding directory", zap.String("path", path))
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, unreadable, nil
}

// ExcludesDir reports whether directory discovery would prune dir.
func (s *Scanner) ExcludesDir(dir string) bool {
	if s.opts.Exclude == nil {
		return false
	}
	return s.opts.Exclude.FindString(slashAbs(dir)+"/") != ""
}

// Accepts reports whether a file found under a walked directory would be
// discovered: it passes the exclude and extension filters and declares an
// accepted language.
func (s *Scanner) Accepts(path string) bool {
	if len(FilterFiles([]string{path}, s.opts)) == 0 {
		return false
	}
	return s.CheckLanguage(path) == nil
}

// CheckLanguage returns ErrUnsupportedLanguage if the notebook at path
// declares a kernel language outside the accepted list. Notebooks that
// cannot be read are let through so the processor reports them.
func (s *Scanner) CheckLanguage(path string) error {
	if len(s.opts.Languages) == 0 {
		return nil
	}
	nb, err := notebook.Read(path)
	if err != nil {
		return nil
	}
	if lang := nb.Language(); !acceptsLanguage(lang, s.opts.Languages) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	return nil
}

// TrackedFiles returns the files under dir tracked by git, caching the
// result for the instance lifetime. It respects .gitignore implicitly by
// asking git.
func (s *Scanner) TrackedFiles(ctx context.Context, dir string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.trackedCache[dir]; ok {
		return cached, nil
	}

	// git ls-files -z to avoid escaping issues
	cmd := exec.CommandContext(ctx, "git", "ls-files", "-z")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-files failed: %w", err)
	}

	files := []string{}
	// -z separates by NUL bytes.
	// Trim trailing NUL if present
	sOut := strings.TrimSuffix(string(out), "\x00")
	if sOut != "" {
		for _, rel := range strings.Split(sOut, "\x00") {
			files = append(files, filepath.Join(dir, filepath.FromSlash(rel)))
		}
	}
	s.trackedCache[dir] = files
	return files, nil
}
