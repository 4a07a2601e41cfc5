package pathparser

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ListProjects enumerates encoded project directories under root, decoding
// each name and counting its non-agent session files. Results are sorted by
// LastModified descending. A limit <= 0 means unlimited.
func ListProjects(source, root string, limit int) ([]ProjectInfo, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var projects []ProjectInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirName := entry.Name()
		dirPath := filepath.Join(root, dirName)

		sessionFiles, err := listSessionFiles(dirPath)
		if err != nil {
			continue
		}

		var lastMod time.Time
		count := 0
		for _, f := range sessionFiles {
			id := strings.TrimSuffix(f.Name(), ".jsonl")
			if IsAgentSession(id) {
				continue
			}
			count++
			if info, err := f.Info(); err == nil && info.ModTime().After(lastMod) {
				lastMod = info.ModTime()
			}
		}

		fullPath := Decode(dirName)
		projects = append(projects, ProjectInfo{
			Source:       source,
			DirName:      dirName,
			DisplayName:  filepath.Base(fullPath),
			FullPath:     fullPath,
			DirPath:      dirPath,
			SessionCount: count,
			LastModified: lastMod,
		})
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].LastModified.After(projects[j].LastModified)
	})

	if limit > 0 && len(projects) > limit {
		projects = projects[:limit]
	}
	return projects, nil
}

// ListSessionMetas lists session files for one project directory (dirName
// relative to root), skipping agent-* sessions, sorted by ModifiedAt
// descending.
func ListSessionMetas(source, root, dirName string) ([]SessionMeta, error) {
	dirPath := filepath.Join(root, dirName)
	files, err := listSessionFiles(dirPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	projectPath := Decode(dirName)

	var metas []SessionMeta
	for _, f := range files {
		id := strings.TrimSuffix(f.Name(), ".jsonl")
		if IsAgentSession(id) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		metas = append(metas, SessionMeta{
			Source:      source,
			SessionID:   id,
			ProjectPath: projectPath,
			FullPath:    filepath.Join(dirPath, f.Name()),
			ModifiedAt:  info.ModTime(),
			FileSize:    info.Size(),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].ModifiedAt.After(metas[j].ModifiedAt)
	})
	return metas, nil
}

// FindLatestSession returns the most recently modified non-agent session in
// a project, if one was modified within withinSeconds of now. A zero
// withinSeconds disables the recency check.
func FindLatestSession(source, root, dirName string, withinSeconds int) (*SessionMeta, error) {
	metas, err := ListSessionMetas(source, root, dirName)
	if err != nil || len(metas) == 0 {
		return nil, err
	}
	latest := metas[0]
	if withinSeconds > 0 {
		cutoff := time.Now().Add(-time.Duration(withinSeconds) * time.Second)
		if latest.ModifiedAt.Before(cutoff) {
			return nil, nil
		}
	}
	return &latest, nil
}

func listSessionFiles(dirPath string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}
	var files []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".jsonl") {
			files = append(files, e)
		}
	}
	return files, nil
}
