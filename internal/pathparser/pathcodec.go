package pathparser

import (
	"os"
	"path/filepath"
	"strings"
)

// Encode maps a filesystem path to the directory-name form CLI tools use to
// store per-project transcripts: every "/" and "." becomes "-". Encoding is
// lossy — paths that already contain "-" can collide with paths that used
// "/" or "." at the same position — so Decode is best-effort, not exact.
func Encode(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for _, r := range path {
		switch r {
		case '/', '.':
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Decode turns an encoded directory name back into the filesystem path it
// most likely came from. It tries a fast path first (a naive one-shot
// reconstruction, verified against the filesystem); when that fails it
// falls back to a slower greedy reconstruction that walks the filesystem
// segment by segment, since "-" is ambiguous between "this was a path
// separator" and "this was a literal hyphen in the original path".
func Decode(dirName string) string {
	if dirName == "" {
		return ""
	}

	if fast := decodeFastPath(dirName); fast != "" {
		if _, err := os.Stat(fast); err == nil {
			return fast
		}
	}

	if slow, ok := decodeSlowPath(dirName); ok {
		return slow
	}

	// Neither strategy found a real directory on disk; return the naive
	// decode anyway so callers still get a plausible display path.
	if fast := decodeFastPath(dirName); fast != "" {
		return fast
	}
	return dirName
}

// decodeFastPath performs the naive "-" -> "/" substitution: a leading "-"
// becomes the root "/", and every other "-" becomes a path separator.
func decodeFastPath(dirName string) string {
	if dirName == "" {
		return ""
	}
	rest := dirName
	prefix := ""
	if strings.HasPrefix(rest, "-") {
		prefix = "/"
		rest = rest[1:]
	}
	return prefix + strings.ReplaceAll(rest, "-", "/")
}

// decodeSlowPath greedily reconstructs the original path by walking the
// filesystem: at each "-" boundary it first tries treating the "-" as a
// separator, keeping that choice if the directory so far exists, and
// otherwise treats the "-" as a literal hyphen joining this segment to the
// next one.
func decodeSlowPath(dirName string) (string, bool) {
	rest := dirName
	current := ""
	if strings.HasPrefix(rest, "-") {
		current = "/"
		rest = rest[1:]
	} else {
		return "", false
	}

	for rest != "" {
		idx := strings.IndexByte(rest, '-')
		if idx < 0 {
			current = joinSegment(current, rest)
			rest = ""
			break
		}

		segment := rest[:idx]
		remainder := rest[idx+1:]

		// Prefer treating "-" as a separator if the resulting directory
		// exists; otherwise treat it as a literal hyphen and keep scanning
		// for the next "-" within the same segment.
		candidate := joinSegment(current, segment)
		if dirExists(candidate) {
			current = candidate
			rest = remainder
			continue
		}

		// Try absorbing the literal "-" into the current segment and
		// continue scanning from the next dash.
		nextIdx := strings.IndexByte(remainder, '-')
		if nextIdx < 0 {
			current = joinSegment(current, segment+"-"+remainder)
			rest = ""
			break
		}
		current = joinSegment(current, segment+"-"+remainder[:nextIdx])
		rest = remainder[nextIdx+1:]
	}

	if dirExists(current) {
		return current, true
	}
	return "", false
}

func joinSegment(base, segment string) string {
	if segment == "" {
		return base
	}
	if base == "/" {
		return "/" + segment
	}
	return base + "/" + segment
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ComputeSessionPath builds the on-disk path for a session file given a
// root directory, an encoded project directory name, and a session id.
func ComputeSessionPath(rootDir, encodedDirName, sessionID string) string {
	return filepath.Join(rootDir, encodedDirName, sessionID+".jsonl")
}

// IsAgentSession reports whether a session id belongs to an internal
// "agent-*" session, which list_projects/list_session_metas filter out by
// default.
func IsAgentSession(sessionID string) bool {
	return strings.HasPrefix(sessionID, "agent-")
}
