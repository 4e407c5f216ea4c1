package walker

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxFileSize is the maximum document size to process (64 MB).
const DefaultMaxFileSize int64 = 64 << 20

// zipMagic starts every .docx package.
var zipMagic = []byte("PK\x03\x04")

// FileInfo holds metadata about a single document discovered during traversal.
type FileInfo struct {
	Path        string // Absolute path on disk.
	RelPath     string // Path relative to the root directory.
	Size        int64  // File size in bytes.
	ContentHash string // SHA-256 hex digest of the file content.
}

// WalkerConfig controls the behaviour of the Walk function.
type WalkerConfig struct {
	RootDir     string   // Root directory to walk.
	Include     []string // Glob patterns; only matching files are included.
	Exclude     []string // Glob patterns; matching files are excluded.
	MaxFileSize int64    // Files larger than this are skipped (0 = use default).
}

// Walk traverses the directory tree rooted at config.RootDir and returns
// metadata for every document that passes filtering. It skips Word lock
// files and anything that is not a zip package, respects include/exclude
// patterns, and honours .gitignore files.
func Walk(config WalkerConfig) ([]FileInfo, error) {
	root, err := filepath.Abs(config.RootDir)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}

	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	gitignorePatterns := loadGitignore(filepath.Join(root, ".gitignore"))

	var files []FileInfo

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip entries we cannot read instead of aborting.
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if path != root && shouldExcludeDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || isLockFile(name) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if matchesGitignore(relPath, gitignorePatterns) {
			return nil
		}

		if !MatchesInclude(relPath, config.Include) {
			return nil
		}
		if MatchesExclude(relPath, config.Exclude) {
			return nil
		}

		fi, ok := inspect(path, maxSize)
		if !ok {
			return nil
		}
		fi.RelPath = filepath.ToSlash(relPath)
		files = append(files, fi)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("walker: traversal: %w", err)
	}

	return files, nil
}

// Expand resolves command-line arguments to documents. Each argument may be
// a file, a directory (walked with config's filters) or a doublestar glob.
// Results are de-duplicated and sorted by path.
func Expand(args []string, config WalkerConfig) ([]FileInfo, error) {
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	seen := make(map[string]bool)
	var out []FileInfo
	add := func(fi FileInfo) {
		if !seen[fi.Path] {
			seen[fi.Path] = true
			out = append(out, fi)
		}
	}

	for _, arg := range args {
		if st, err := os.Stat(arg); err == nil {
			if st.IsDir() {
				cfg := config
				cfg.RootDir = arg
				files, err := Walk(cfg)
				if err != nil {
					return nil, err
				}
				for _, f := range files {
					add(f)
				}
				continue
			}
			fi, ok := inspect(arg, maxSize)
			if !ok {
				return nil, fmt.Errorf("walker: %s is not a .docx document", arg)
			}
			fi.RelPath = filepath.ToSlash(arg)
			add(fi)
			continue
		}

		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("walker: bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("walker: no documents match %q", arg)
		}
		for _, m := range matches {
			if isLockFile(filepath.Base(m)) || MatchesExclude(m, config.Exclude) {
				continue
			}
			if fi, ok := inspect(m, maxSize); ok {
				fi.RelPath = filepath.ToSlash(m)
				add(fi)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// inspect stats and hashes path, rejecting oversized files and files that
// are not zip packages.
func inspect(path string, maxSize int64) (FileInfo, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, false
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() || info.Size() > maxSize {
		return FileInfo{}, false
	}
	if !isZip(abs) {
		return FileInfo{}, false
	}
	hash, err := hashFile(abs)
	if err != nil {
		return FileInfo{}, false
	}
	return FileInfo{Path: abs, Size: info.Size(), ContentHash: hash}, true
}

// isZip checks the local file header signature.
func isZip(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(f, buf); err != nil {
		return false
	}
	return bytes.Equal(buf, zipMagic)
}

// hashFile computes the SHA-256 digest of the given file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// loadGitignore reads a .gitignore file and returns its non-empty,
// non-comment lines as patterns.
func loadGitignore(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// matchesGitignore checks if a relative path matches any gitignore pattern.
func matchesGitignore(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(relPath)
	parts := strings.Split(normalized, "/")

	for _, pattern := range patterns {
		dirOnly := strings.HasSuffix(pattern, "/")
		pattern = strings.TrimSuffix(pattern, "/")

		if strings.Contains(pattern, "/") {
			pattern = strings.TrimPrefix(pattern, "/")
			if matched, _ := doublestar.Match(pattern, normalized); matched {
				return true
			}
			if matched, _ := doublestar.Match(pattern+"/**", normalized); matched {
				return true
			}
			continue
		}

		// A pattern without a slash matches any path component; a
		// directory-only pattern must not match the file itself.
		last := len(parts) - 1
		for i, part := range parts {
			if dirOnly && i == last {
				break
			}
			if matched, _ := filepath.Match(pattern, part); matched {
				return true
			}
		}
	}
	return false
}
