package pathparser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	googleuuid "github.com/google/uuid"
)

// ParseJSONL reads a transcript file line by line and returns an
// IndexableSession. Empty lines are skipped; lines that fail to unmarshal as
// JSON are skipped and counted in SkippedLines; a malformed line never
// aborts the parse. Messages are emitted in file order with Sequence implied
// by their position in the returned slice, starting at 0. Lines with
// unrecognized roles (system, tool, progress, summary, checkpoint markers)
// are left out of the returned Messages and are not counted in SkippedLines.
func ParseJSONL(path, source string) (IndexableSession, error) {
	f, err := os.Open(path)
	if err != nil {
		return IndexableSession{}, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	sessionID := strings.TrimSuffix(filepathBase(path), ".jsonl")
	session := IndexableSession{
		SessionID: sessionID,
		Source:    source,
	}

	reader := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			trimmed := strings.TrimRight(string(line), "\r\n")
			if strings.TrimSpace(trimmed) != "" {
				msg, ok := parseLine([]byte(trimmed))
				if !ok {
					session.SkippedLines++
				} else if msg != nil {
					session.Messages = append(session.Messages, *msg)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return session, fmt.Errorf("read transcript: %w", err)
		}
	}

	return session, nil
}

func filepathBase(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// rawEnvelope covers both transcript shapes seen across CLI families: a
// flat `role` field (Codex/OpenCode-style) and a `type` + nested
// `message.role` field (Claude-style).
type rawEnvelope struct {
	UUID      string          `json:"uuid"`
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Timestamp json.RawMessage `json:"timestamp"`
	Content   json.RawMessage `json:"content"`
	Message   *rawMessage     `json:"message"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// parseLine parses one JSONL line. ok is false if the line is not valid
// JSON at all. A nil message with ok=true means the line parsed fine but
// carries a role this parser does not surface as a Message (system,
// progress, tool, summary, checkpoint).
func parseLine(line []byte) (msg *MessageInput, ok bool) {
	var env rawEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, false
	}

	var roleStr string
	var content json.RawMessage
	switch {
	case env.Message != nil:
		roleStr = env.Message.Role
		content = env.Message.Content
	case env.Role != "":
		roleStr = env.Role
		content = env.Content
	default:
		roleStr = env.Type
		content = env.Content
	}

	role, recognized := normalizeRole(roleStr)
	if !recognized {
		return nil, true
	}

	uuid := env.UUID
	if uuid == "" {
		uuid = env.ID
	}
	if uuid == "" {
		// Some CLIs omit a per-line id entirely. Derive one deterministically
		// from the raw line so repeated scans of the same file produce the
		// same id (a random v4 here would defeat dedup-by-UUID on rescan).
		uuid = googleuuid.NewSHA1(googleuuid.Nil, line).String()
	}

	text, full := extractContent(content)

	return &MessageInput{
		UUID:        uuid,
		Role:        role,
		ContentText: text,
		ContentFull: full,
		Timestamp:   parseTimestamp(env.Timestamp),
		Raw:         json.RawMessage(append([]byte(nil), line...)),
	}, true
}

func normalizeRole(s string) (Role, bool) {
	switch strings.ToLower(s) {
	case "user", "human":
		return RoleHuman, true
	case "assistant":
		return RoleAssistant, true
	default:
		return RoleHuman, false
	}
}

// parseTimestamp accepts an ISO-8601 string or a millisecond/second numeric
// epoch and returns milliseconds since epoch. Unparseable or absent
// timestamps return 0.
func parseTimestamp(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if t, err := time.Parse(layout, asString); err == nil {
				return t.UnixMilli()
			}
		}
		return 0
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		// Heuristic: values below 10^12 are almost certainly seconds, not
		// milliseconds (seconds-since-epoch stays under that until year
		// ~33658).
		if asNumber > 0 && asNumber < 1e12 {
			return int64(asNumber * 1000)
		}
		return int64(asNumber)
	}

	return 0
}

// contentBlock is one element of a structured `content` array, as used by
// Claude-style messages (text blocks, tool_use, tool_result, thinking).
type contentBlock struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Name    string          `json:"name"`
	Input   json.RawMessage `json:"input"`
	Content json.RawMessage `json:"content"`
}

// extractContent returns (plain dialogue text, formatted-for-search text)
// from a `content` field that may be a bare string or a structured array of
// blocks.
func extractContent(raw json.RawMessage) (text string, full string) {
	if len(raw) == 0 {
		return "", ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, asString
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		// Unrecognized shape; fall back to the raw JSON as the full text
		// and leave content_text empty rather than guessing.
		return "", string(raw)
	}

	var plain, formatted []string
	for _, b := range blocks {
		switch b.Type {
		case "text", "thinking":
			if b.Text != "" {
				plain = append(plain, b.Text)
				formatted = append(formatted, b.Text)
			}
		case "tool_use":
			formatted = append(formatted, fmt.Sprintf("[tool_use: %s] %s", b.Name, compactJSON(b.Input)))
		case "tool_result":
			formatted = append(formatted, fmt.Sprintf("[tool_result] %s", compactJSON(b.Content)))
		}
	}
	return strings.Join(plain, "\n"), strings.Join(formatted, "\n")
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if s, ok := v.(string); ok {
		return s
	}
	compact, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(compact)
}
