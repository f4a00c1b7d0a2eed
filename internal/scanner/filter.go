package scanner

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultExclude matches version-control, checkpoint and build directories.
const DefaultExclude = `(/\.git/|/\.ipynb_checkpoints/|/build/|/dist/)`

// NotebookExtension is the file extension of Jupyter notebooks.
const NotebookExtension = ".ipynb"

// FilterOptions defines criteria for including or excluding files.
type FilterOptions struct {
	// Exclude is matched against the absolute, slash-separated path. Only a
	// non-empty match excludes, so patterns that can match the empty
	// string do not exclude everything.
	Exclude *regexp.Regexp

	// IncludeExtensions is a list of extensions to include (e.g., ".ipynb").
	// If empty, all extensions are included.
	IncludeExtensions []string

	// Languages lists the accepted notebook kernel languages. If empty,
	// every language is accepted.
	Languages []string
}

// DefaultFilterOptions returns the discovery defaults: notebooks only,
// excluding DefaultExclude, Python kernels only.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		Exclude:           regexp.MustCompile(DefaultExclude),
		IncludeExtensions: []string{NotebookExtension},
		Languages:         []string{"python"},
	}
}

// ParseLanguages splits a comma-separated language list.
func ParseLanguages(s string) []string {
	var langs []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

// FilterFiles applies the exclude and extension options to a list of file
// paths. It returns a new slice of strings, sorted deterministically.
func FilterFiles(paths []string, opts FilterOptions) []string {
	if len(paths) == 0 {
		return nil
	}

	var filtered []string
	for _, path := range paths {
		if shouldExclude(path, opts.Exclude) {
			continue
		}
		if !shouldIncludeExtension(path, opts.IncludeExtensions) {
			continue
		}
		filtered = append(filtered, path)
	}

	sort.Strings(filtered)
	return filtered
}

// shouldExclude returns true if the absolute form of path matches exclude.
func shouldExclude(path string, exclude *regexp.Regexp) bool {
	if exclude == nil {
		return false
	}
	return exclude.FindString(slashAbs(path)) != ""
}

// slashAbs returns the cleaned absolute form of path with forward slashes.
func slashAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return filepath.ToSlash(abs)
}

// shouldIncludeExtension returns true if length is 0 OR path matches one extension.
func shouldIncludeExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// acceptsLanguage reports whether lang is one of the accepted languages.
func acceptsLanguage(lang string, accepted []string) bool {
	if len(accepted) == 0 {
		return true
	}
	for _, a := range accepted {
		if a == lang {
			return true
		}
	}
	return false
}
