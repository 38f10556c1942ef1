// Package pathexpand implements C1: turning the caller's list of path
// patterns into canonical absolute file paths, resolving `~`, relative
// paths, and single-level glob wildcards against the local filesystem.
package pathexpand

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gregakespret/sfagent/internal/model"
	"github.com/gregakespret/sfagent/internal/pathutil"
)

// Expand resolves patterns into a deduplicated set of canonical
// absolute paths, in first-seen order. A literal path that does not
// exist is accepted as-is — non-existence is recorded later during
// metadata initialization (status NONEXIST), not here. Directory
// listing failures (a glob whose parent directory can't be read)
// surface as *model.ListFilesError, which is fatal to the command.
func Expand(patterns []string) ([]string, error) {
	var result []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		resolved, err := resolveHomeAndCwd(pattern)
		if err != nil {
			return nil, &model.ListFilesError{Path: pattern, Err: err}
		}

		if !hasGlobChars(resolved) {
			if !seen[resolved] {
				seen[resolved] = true
				result = append(result, resolved)
			}
			continue
		}

		matches, err := filepath.Glob(resolved)
		if err != nil {
			return nil, &model.ListFilesError{Path: pattern, Err: err}
		}
		// filepath.Glob silently returns no matches instead of an
		// error when the parent directory is unreadable; distinguish
		// that case so C1 fails fatally rather than silently dropping
		// the pattern.
		if len(matches) == 0 {
			if _, readErr := os.ReadDir(filepath.Dir(resolved)); readErr != nil && !os.IsNotExist(readErr) {
				return nil, &model.ListFilesError{Path: pattern, Err: readErr}
			}
			continue
		}

		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				return nil, &model.ListFilesError{Path: m, Err: err}
			}
			if !seen[abs] {
				seen[abs] = true
				result = append(result, abs)
			}
		}
	}

	return result, nil
}

// hasGlobChars reports whether path contains any wildcard
// metacharacter: *, ?, or a [...] character class.
func hasGlobChars(path string) bool {
	return strings.ContainsAny(path, "*?[]")
}

// resolveHomeAndCwd expands a leading ~ and makes the path absolute
// relative to the current working directory, without touching any
// glob metacharacters it may still contain.
func resolveHomeAndCwd(pattern string) (string, error) {
	if strings.HasPrefix(pattern, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		pattern = filepath.Join(home, strings.TrimPrefix(pattern, "~"))
	}
	if filepath.IsAbs(pattern) {
		return pattern, nil
	}
	cwd, err := pathutil.ResolveAbsolutePath("")
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, pattern), nil
}
