package pathparser

import (
	"os"
	"path/filepath"
)

// Root describes one CLI family's transcript directory: a source tag and a
// function that resolves the base directory containing encoded project
// subdirectories (e.g. ~/.claude/projects). Dir is a function rather than a
// bare path so tests can inject a temp directory without touching $HOME.
type Root struct {
	Source string
	Dir    func() (string, error)
}

// DefaultRoots returns the three built-in transcript roots. Callers may
// append additional roots (future CLI families) without code changes
// elsewhere in the package.
func DefaultRoots() []Root {
	return []Root{
		{Source: "claude", Dir: homeSubdir(".claude", "projects")},
		{Source: "codex", Dir: homeSubdir(".codex", "sessions")},
		{Source: "opencode", Dir: homeSubdir(".local", "share", "opencode", "project")},
	}
}

func homeSubdir(parts ...string) func() (string, error) {
	return func() (string, error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append([]string{home}, parts...)...), nil
	}
}
