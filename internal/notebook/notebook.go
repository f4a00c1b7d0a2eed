// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notebook reads and writes the subset of the Jupyter notebook
// document that nbfmt interprets, keeping every other field intact.
package notebook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotANotebook is returned when a document does not have the expected
// top-level cell array structure.
var ErrNotANotebook = errors.New("not a notebook")

// CellType discriminates notebook cells.
type CellType string

const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
	CellRaw      CellType = "raw"
)

// Cell is a single notebook cell. Only the cell type, source and execution
// count are interpreted; all other fields are carried through verbatim.
type Cell struct {
	Type           CellType
	Source         string
	ExecutionCount *int

	// sourceAsList records whether the source was stored as an array of
	// lines, which is how nbformat writes it.
	sourceAsList bool
	dirty        bool
	fields       map[string]json.RawMessage
}

// IsCode reports whether the cell is executable.
func (c *Cell) IsCode() bool { return c.Type == CellCode }

// SetSource replaces the cell's source. Nothing else in the cell changes.
func (c *Cell) SetSource(src string) {
	if src == c.Source {
		return
	}
	c.Source = src
	c.dirty = true
}

// Notebook is an ordered sequence of cells plus the opaque remainder of the
// document.
type Notebook struct {
	Path  string
	Cells []*Cell

	fields map[string]json.RawMessage
}

// Parse decodes a notebook document.
func Parse(data []byte) (*Notebook, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotANotebook, err)
	}
	rawCells, ok := top["cells"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"cells\"", ErrNotANotebook)
	}

	var cellObjs []map[string]json.RawMessage
	if err := json.Unmarshal(rawCells, &cellObjs); err != nil {
		return nil, fmt.Errorf("%w: \"cells\" is not an array of objects: %v", ErrNotANotebook, err)
	}

	nb := &Notebook{fields: top, Cells: make([]*Cell, 0, len(cellObjs))}
	for i, obj := range cellObjs {
		cell, err := parseCell(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: cell %d: %v", ErrNotANotebook, i+1, err)
		}
		nb.Cells = append(nb.Cells, cell)
	}
	return nb, nil
}

func parseCell(obj map[string]json.RawMessage) (*Cell, error) {
	if obj == nil {
		return nil, errors.New("cell is null")
	}
	c := &Cell{fields: obj}

	rawType, ok := obj["cell_type"]
	if !ok {
		return nil, errors.New("missing cell_type")
	}
	var typ string
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return nil, fmt.Errorf("cell_type: %w", err)
	}
	c.Type = CellType(typ)

	if rawSrc, ok := obj["source"]; ok {
		src, asList, err := decodeSource(rawSrc)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		c.Source = src
		c.sourceAsList = asList
	}

	if c.IsCode() {
		if rawCount, ok := obj["execution_count"]; ok {
			var count *int
			if err := json.Unmarshal(rawCount, &count); err != nil {
				return nil, fmt.Errorf("execution_count: %w", err)
			}
			c.ExecutionCount = count
		}
	}
	return c, nil
}

// decodeSource accepts both a single string and a list of line strings.
func decodeSource(raw json.RawMessage) (string, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var lines []string
		if err := json.Unmarshal(trimmed, &lines); err != nil {
			return "", true, err
		}
		return strings.Join(lines, ""), true, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false, err
	}
	return s, false, nil
}

// encodeSource produces the source in the representation it was read in.
func encodeSource(src string, asList bool) any {
	if !asList {
		return src
	}
	return SplitLines(src)
}

// SplitLines splits text into lines keeping their line endings, the same
// way nbformat stores multi-line sources.
func SplitLines(s string) []string {
	lines := []string{}
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

// Language returns the notebook's declared kernel language, falling back to
// language_info.name. It returns "" when neither is present.
func (nb *Notebook) Language() string {
	raw, ok := nb.fields["metadata"]
	if !ok {
		return ""
	}
	var meta struct {
		Kernelspec struct {
			Language string `json:"language"`
		} `json:"kernelspec"`
		LanguageInfo struct {
			Name string `json:"name"`
		} `json:"language_info"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return ""
	}
	if meta.Kernelspec.Language != "" {
		return meta.Kernelspec.Language
	}
	return meta.LanguageInfo.Name
}

// CodeCells returns the code cells in document order.
func (nb *Notebook) CodeCells() []*Cell {
	var out []*Cell
	for _, c := range nb.Cells {
		if c.IsCode() {
			out = append(out, c)
		}
	}
	return out
}

// Marshal serializes the notebook. Keys are written sorted with a one-space
// indent, matching nbformat's writer, so untouched documents round-trip
// byte for byte.
func (nb *Notebook) Marshal() ([]byte, error) {
	cells := make([]json.RawMessage, 0, len(nb.Cells))
	for i, c := range nb.Cells {
		raw, err := c.marshal()
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i+1, err)
		}
		cells = append(cells, raw)
	}
	cellsRaw, err := compactJSON(cells)
	if err != nil {
		return nil, err
	}

	top := make(map[string]json.RawMessage, len(nb.fields)+1)
	for k, v := range nb.fields {
		top[k] = v
	}
	top["cells"] = cellsRaw

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	if err := enc.Encode(top); err != nil {
		return nil, fmt.Errorf("encoding notebook: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Cell) marshal() (json.RawMessage, error) {
	fields := make(map[string]json.RawMessage, len(c.fields))
	for k, v := range c.fields {
		fields[k] = v
	}
	if c.dirty {
		src, err := compactJSON(encodeSource(c.Source, c.sourceAsList))
		if err != nil {
			return nil, err
		}
		fields["source"] = src
	}
	return compactJSON(fields)
}

func compactJSON(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Read loads and parses a notebook from disk.
func Read(path string) (*Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	nb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	nb.Path = path
	return nb, nil
}

// Write serializes the notebook to its path. The content is written to a
// temp file in the same directory and renamed over the original.
func (nb *Notebook) Write() error {
	if nb.Path == "" {
		return errors.New("notebook has no path")
	}
	data, err := nb.Marshal()
	if err != nil {
		return err
	}
	return atomicWrite(nb.Path, data)
}

func atomicWrite(path string, content []byte) error {
	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".nbfmt-tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(content); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmpFile.Chmod(mode); err != nil {
		tmpFile.Close()
		return fmt.Errorf("setting mode: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("moving temp file to %s: %w", path, err)
	}
	return nil
}
