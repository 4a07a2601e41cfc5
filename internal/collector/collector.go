// Package collector drives the end-to-end pipeline: discover transcript
// files via pathparser, parse them, and reconcile them into Storage through
// incremental scans.
package collector

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vimo-ai/ai-cli-session-db/internal/pathparser"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

// rootsFn resolves the transcript roots to scan. It is a variable rather
// than a direct call to pathparser.DefaultRoots so tests can inject
// temp-directory roots without touching the real home directory.
var rootsFn = pathparser.DefaultRoots

// Result aggregates counts from one collection pass. A per-file parse
// failure contributes to ErrorCount and FirstError but never aborts the
// overall scan.
type Result struct {
	ProjectsScanned  int
	SessionsScanned  int
	MessagesInserted int
	ErrorCount       int
	FirstError       string
}

func (r *Result) recordError(err error) {
	r.ErrorCount++
	if r.FirstError == "" {
		r.FirstError = err.Error()
	}
}

// CollectAll walks every registered transcript root, upserts a project per
// encoded directory, and scans every non-agent session beneath it.
// Collection is idempotent: running it twice against unchanged files
// inserts zero new messages.
func CollectAll(store *storage.Store) Result {
	var result Result
	for _, root := range rootsFn() {
		dir, err := root.Dir()
		if err != nil {
			result.recordError(err)
			continue
		}

		projects, err := pathparser.ListProjects(root.Source, dir, 0)
		if err != nil {
			result.recordError(err)
			continue
		}

		for _, proj := range projects {
			result.ProjectsScanned++
			projectID, err := store.UpsertProject(proj.DisplayName, proj.FullPath, proj.Source)
			if err != nil {
				result.recordError(err)
				continue
			}

			metas, err := pathparser.ListSessionMetas(proj.Source, dir, proj.DirName)
			if err != nil {
				result.recordError(err)
				continue
			}

			for _, meta := range metas {
				result.SessionsScanned++
				inserted, err := scanSessionFile(store, projectID, meta.SessionID, proj.Source, meta.FullPath)
				if err != nil {
					result.recordError(err)
					continue
				}
				result.MessagesInserted += inserted
			}
		}
	}
	return result
}

// CollectByPath parses and scans a single transcript file, inferring its
// source and project from whichever registered root contains it.
func CollectByPath(store *storage.Store, filePath string) Result {
	var result Result

	source, rootDir, ok := resolveRoot(filePath)
	if !ok {
		result.recordError(fmt.Errorf("collector: %s is not under a known transcript root", filePath))
		return result
	}

	encodedDir := filepath.Base(filepath.Dir(filePath))
	sessionID := strings.TrimSuffix(filepath.Base(filePath), ".jsonl")
	if pathparser.IsAgentSession(sessionID) {
		return result
	}

	projectPath := pathparser.Decode(encodedDir)
	result.ProjectsScanned = 1
	projectID, err := store.UpsertProject(filepath.Base(projectPath), projectPath, source)
	if err != nil {
		result.recordError(err)
		return result
	}

	result.SessionsScanned = 1
	inserted, err := scanSessionFile(store, projectID, sessionID, source, filePath)
	if err != nil {
		result.recordError(err)
		return result
	}
	result.MessagesInserted = inserted
	_ = rootDir
	return result
}

func scanSessionFile(store *storage.Store, projectID int64, sessionID, source, path string) (int, error) {
	if pathparser.IsAgentSession(sessionID) {
		return 0, nil
	}
	session, err := pathparser.ParseJSONL(path, source)
	if err != nil {
		return 0, fmt.Errorf("collector: parse %s: %w", path, err)
	}
	return store.ScanSessionIncremental(sessionID, projectID, session.Messages)
}

func resolveRoot(filePath string) (source, rootDir string, ok bool) {
	for _, root := range rootsFn() {
		dir, err := root.Dir()
		if err != nil {
			continue
		}
		if strings.HasPrefix(filePath, dir+string(filepath.Separator)) {
			return root.Source, dir, true
		}
	}
	return "", "", false
}
