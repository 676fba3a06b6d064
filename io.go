// File: lixenwraith/nodeconf/io.go
package nodeconf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteTo serializes the tree. An untouched parsed tree is written back
// byte for byte.
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Bytes())
	return int64(n), err
}

// Bytes returns the serialized tree.
func (c *Config) Bytes() []byte {
	var buf bytes.Buffer
	if c.bom {
		buf.WriteString(utf8BOM)
	}
	lines := c.Root().Lines()
	for i, line := range lines {
		buf.WriteString(line)
		if i < len(lines)-1 || c.trailingNewline {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// String returns the serialized tree.
func (c *Config) String() string {
	return string(c.Bytes())
}

// Save writes the tree to path atomically, creating parent directories, and
// makes path the backing file of c.
func (c *Config) Save(path string) error {
	if err := atomicWriteFile(path, c.Bytes()); err != nil {
		return err
	}
	c.path = path
	if c.name == "" {
		c.name = filepath.Base(path)
	}
	return nil
}

// SaveFile writes the tree back to its backing file.
func (c *Config) SaveFile() error {
	if c.path == "" {
		return ErrNoFile
	}
	return c.Save(c.path)
}

func (c *Config) indentation(level int) string {
	return strings.Repeat(c.indent, level)
}

// appendLines serializes node id at indentation level, preceded by its
// leading comment lines and followed by its children.
func (c *Config) appendLines(lines []string, id NodeID, level int) []string {
	d := &c.nodes[id]
	for _, l := range d.leading {
		if strings.TrimSpace(l) == "" {
			lines = append(lines, "")
		} else {
			lines = append(lines, c.indentation(level)+l)
		}
	}
	lines = append(lines, c.lineText(id, level))
	if d.kind == KindSection {
		lines = c.appendChildLines(lines, id, level+1)
	}
	return lines
}

func (c *Config) appendChildLines(lines []string, section NodeID, level int) []string {
	for _, ch := range c.nodes[section].children {
		lines = c.appendLines(lines, ch, level)
	}
	return lines
}

// lineText renders the single line of node id.
func (c *Config) lineText(id NodeID, level int) string {
	d := &c.nodes[id]
	switch d.kind {
	case KindInvalid:
		return d.value
	case KindVoid:
		if d.line >= 0 {
			return d.indent + d.value + d.gap
		}
		if d.value == "" {
			return ""
		}
		return c.indentation(level) + d.value
	}
	return c.indentation(level) + Reescape(Node{c: c, id: id}.Text()) + d.gap + d.comment
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // no-op once renamed

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file to '%s': %w", path, err)
	}

	return nil
}

// createIfMissing creates an empty file at path, and its parent directories,
// unless it already exists.
func createIfMissing(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to create config file '%s': %w", path, err)
	}
	return f.Close()
}
