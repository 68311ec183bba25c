package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxIncludeDepth = 8

// includeWalker merges included files onto a Config, tracking visited files
// so that cycles are reported instead of looping.
type includeWalker struct {
	cfg     *Config
	visited map[string]bool
}

// mergeIncludes overlays every file named in cfg.Includes onto cfg.
// rootPath is the absolute path of the file that declared them.
func mergeIncludes(cfg *Config, rootPath string) error {
	w := &includeWalker{cfg: cfg, visited: map[string]bool{rootPath: true}}
	return w.walk(cfg.Includes, filepath.Dir(rootPath), 1)
}

func (w *includeWalker) walk(patterns []string, baseDir string, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("config includes: nested deeper than %d", maxIncludeDepth)
	}
	for _, pattern := range patterns {
		paths, err := expandInclude(pattern, baseDir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			if w.visited[p] {
				return fmt.Errorf("config includes: %s is included twice (cycle?)", p)
			}
			w.visited[p] = true
			if err := w.merge(p, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

// merge unmarshals one file onto the config, then follows its own includes.
func (w *includeWalker) merge(path string, depth int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config includes: read %s: %w", path, err)
	}
	if err := validatePermissions(path); err != nil {
		return fmt.Errorf("config includes: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	w.cfg.Includes = nil
	if err := yaml.Unmarshal(data, w.cfg); err != nil {
		return fmt.Errorf("config includes: parse %s: %w", path, err)
	}
	nested := w.cfg.Includes
	w.cfg.Includes = nil
	if len(nested) == 0 {
		return nil
	}
	return w.walk(nested, filepath.Dir(path), depth+1)
}

// expandInclude resolves pattern against baseDir and expands globs. A
// literal path that does not exist is returned as-is so that reading it
// reports the error; a glob that matches nothing yields no paths.
func expandInclude(pattern, baseDir string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(baseDir, pattern)
		if rel, err := filepath.Rel(baseDir, pattern); err == nil && (rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return nil, fmt.Errorf("config includes: %s escapes %s", pattern, baseDir)
		}
	}
	pattern = filepath.Clean(pattern)

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("config includes: bad pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 && !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, nil
	}
	for i, m := range matches {
		if abs, err := filepath.Abs(m); err == nil {
			matches[i] = abs
		}
	}
	return matches, nil
}
