// Package pathparser encodes and decodes CLI transcript project paths and
// parses JSONL transcript files into IndexableSession values the Collector
// can hand to Storage.
package pathparser

import (
	"encoding/json"
	"time"
)

// Role is a message's normalized speaker, using the same integer encoding
// the C ABI exposes (0=human, 1=assistant). Lines with roles outside this
// set (system, tool, progress, summary, checkpoint markers) are dropped by
// the parser: they produce no Message and take no sequence position.
type Role int

const (
	RoleHuman Role = iota
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleHuman:
		return "human"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// ProjectInfo describes one encoded project directory discovered under a
// transcript root.
type ProjectInfo struct {
	Source       string    // CLI family: "claude", "codex", "opencode"
	DirName      string    // raw directory name, e.g. "-Users-evan-proj"
	DisplayName  string    // last path component of FullPath
	FullPath     string    // decoded project path, e.g. "/Users/evan/proj"
	DirPath      string    // absolute filesystem path to the project directory
	SessionCount int       // number of .jsonl session files (agent-* excluded)
	LastModified time.Time // most recent session modification time
}

// SessionMeta describes one session file without parsing its contents.
type SessionMeta struct {
	Source      string
	SessionID   string
	ProjectPath string
	FullPath    string
	FirstPrompt string
	Model       string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	FileSize    int64
}

// MessageInput is one parsed transcript line, ready for Storage.InsertMessages.
type MessageInput struct {
	UUID        string
	Role        Role
	ContentText string          // plain dialogue text, suitable for embeddings
	ContentFull string          // formatted text, what search_fts indexes
	Timestamp   int64           // milliseconds since epoch
	Raw         json.RawMessage // original line, preserved for the `raw` column
}

// IndexableSession is the result of parsing one transcript file: messages in
// file order, plus a count of lines that were skipped because they were
// malformed JSON. Empty lines are skipped without being counted.
type IndexableSession struct {
	SessionID    string
	ProjectPath  string
	Source       string
	Messages     []MessageInput
	SkippedLines int
}
