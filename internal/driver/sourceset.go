package driver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceRoot is one directory to search for compilation units, with a
// prefix used when building a display-friendly relative path (mirroring
// ModuleInfo.Prefix for multi-root analyses).
type SourceRoot struct {
	Dir    string
	Prefix string
}

// SourceSet discovers compilation-unit files across one or more root
// directories, replacing a packages.Load-based module discovery with a
// plain filesystem walk: there is no module graph to
// resolve for a foreign language's source tree, only files with a given
// extension.
type SourceSet struct {
	roots         []SourceRoot
	ext           string
	skipTests     bool
	skipGenerated bool
}

// NewSourceSet builds a SourceSet over roots, restricted to files whose
// name ends in ext (e.g. ".java").
func NewSourceSet(ext string, roots ...SourceRoot) *SourceSet {
	return &SourceSet{roots: roots, ext: ext, skipTests: true, skipGenerated: true}
}

// SkipTests controls whether Discover excludes files named "*Test"+ext,
// the JUnit-style convention the original system's own test sources use.
func (ss *SourceSet) SkipTests(skip bool) *SourceSet { ss.skipTests = skip; return ss }

// SkipGenerated controls whether Discover excludes files named
// "*.generated"+ext, generalizing a ".pb.go"-style generated-file filter.
func (ss *SourceSet) SkipGenerated(skip bool) *SourceSet { ss.skipGenerated = skip; return ss }

// Discover walks every root and returns the paths of matching
// compilation-unit files (each joined onto its root's Dir as given, so
// absolute only when that Dir is), sorted for determinism. vendor/.git/hidden
// directories are skipped, matching a findSubModules-style walk.
func (ss *SourceSet) Discover() ([]string, error) {
	var out []string
	for _, root := range ss.roots {
		err := filepath.WalkDir(root.Dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				base := filepath.Base(path)
				if base == "vendor" || base == ".git" || (strings.HasPrefix(base, ".") && path != root.Dir) {
					return filepath.SkipDir
				}
				return nil
			}
			if ss.shouldSkip(path) {
				return nil
			}
			out = append(out, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}

func (ss *SourceSet) shouldSkip(path string) bool {
	if !strings.HasSuffix(path, ss.ext) {
		return true
	}
	base := strings.TrimSuffix(filepath.Base(path), ss.ext)
	if ss.skipTests && strings.HasSuffix(base, "Test") {
		return true
	}
	if ss.skipGenerated && strings.HasSuffix(base, ".generated") {
		return true
	}
	return false
}

// RelFile converts an absolute path to a root-relative, prefix-joined
// path, preferring the most specific (longest Dir) matching root —
// mirroring ModuleSet.RelFile's nested-module tie-break.
func (ss *SourceSet) RelFile(absPath string) string {
	bestRel := ""
	bestPrefix := ""
	bestDirLen := -1

	for _, root := range ss.roots {
		rel, err := filepath.Rel(root.Dir, absPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if len(root.Dir) > bestDirLen {
			bestDirLen = len(root.Dir)
			bestRel = rel
			bestPrefix = root.Prefix
		}
	}

	if bestDirLen < 0 {
		return ""
	}
	if bestPrefix == "" {
		return bestRel
	}
	return bestPrefix + "/" + bestRel
}

// ReadSource reads path and returns its UTF-8 text with any leading
// byte-order mark stripped (decoded as UTF-8, byte-order-mark
// tolerant).
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return stripBOM(string(data)), nil
}
