// Package fsutil resolves module names to backing files and enumerates the
// backing files of a source directory.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ModuleFile is a backing file found in a source directory.
type ModuleFile struct {
	Name string
	Path string
	Ext  string
}

// FileName builds the conventional backing-file name "<prefix>_<name><ext>".
func FileName(prefix, name, ext string) string {
	return prefix + "_" + name + ext
}

// Resolve returns the first existing backing file for name, trying each
// extension in order. The boolean is false when none exists.
func Resolve(dir, prefix, name string, extensions []string) (string, bool, error) {
	for _, ext := range extensions {
		path := filepath.Join(dir, FileName(prefix, name, ext))
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		if info.Mode().IsRegular() {
			return path, true, nil
		}
	}
	return "", false, nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// FindModuleFiles lists the backing files directly inside dir whose names
// follow the "<prefix>_<name><ext>" convention. When the same module name
// exists with several extensions, the one listed first in extensions wins.
// Results are sorted by module name.
func FindModuleFiles(dir, prefix string, extensions []string) ([]ModuleFile, error) {
	if prefix == "" {
		panic("prefix must not be empty")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	rank := make(map[string]int, len(extensions))
	for i, ext := range extensions {
		rank[ext] = i
	}

	found := make(map[string]ModuleFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		if !strings.HasPrefix(fileName, prefix+"_") {
			continue
		}
		ext := filepath.Ext(fileName)
		if _, ok := rank[ext]; !ok {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(fileName, prefix+"_"), ext)
		if name == "" {
			continue
		}
		if prev, ok := found[name]; ok && rank[prev.Ext] <= rank[ext] {
			continue
		}
		found[name] = ModuleFile{Name: name, Path: filepath.Join(dir, fileName), Ext: ext}
	}

	files := make([]ModuleFile, 0, len(found))
	for _, f := range found {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
