package storage

import "github.com/vimo-ai/ai-cli-session-db/internal/pathparser"

// Project mirrors one row of the projects table.
type Project struct {
	ID        int64
	Name      string
	Path      string
	Source    string
	CreatedAt int64
	UpdatedAt int64
}

// Session mirrors one row of the sessions table.
type Session struct {
	ID            int64
	SessionID     string
	ProjectID     int64
	MessageCount  int64
	LastMessageAt *int64
	CreatedAt     int64
	UpdatedAt     int64
}

// Message mirrors one row of the messages table.
type Message struct {
	ID          int64
	SessionID   int64
	UUID        string
	Role        pathparser.Role
	ContentText string
	ContentFull string
	Timestamp   int64
	Sequence    int64
	Raw         []byte
}

// MessageInput is the unit Collector hands to InsertMessages/ScanSessionIncremental.
// It reuses pathparser's parsed-message shape directly rather than duplicating it.
type MessageInput = pathparser.MessageInput

// SearchOrder selects how SearchFTS ranks results.
type SearchOrder int

const (
	OrderScore SearchOrder = iota
	OrderTimeDesc
	OrderTimeAsc
)

// SearchResult is one row returned by SearchFTS.
type SearchResult struct {
	MessageID   int64
	SessionID   string
	ProjectPath string
	Snippet     string
	Score       float64
	Timestamp   int64
}

// ApprovalStatus encodes the fixed approval enum from the C ABI contract.
type ApprovalStatus int

const (
	ApprovalPending ApprovalStatus = iota
	ApprovalApproved
	ApprovalRejected
	ApprovalTimeout
)

// Stats summarizes row counts across the three core tables.
type Stats struct {
	Projects int64
	Sessions int64
	Messages int64
}
