// Package protocol defines the line-delimited JSON wire format exchanged
// between the Agent and its clients over the local IPC socket: one JSON
// object per line, in three families — Request (client to agent), Response
// (agent to client, correlated by id), and Push (agent to client,
// unsolicited).
package protocol

import "encoding/json"

// RequestType tags which variant of Request is populated.
type RequestType string

const (
	ReqNotifyFileChange   RequestType = "NotifyFileChange"
	ReqWriteApproveResult RequestType = "WriteApproveResult"
	ReqSubscribe          RequestType = "Subscribe"
	ReqHookEvent          RequestType = "HookEvent"
	ReqPing               RequestType = "Ping"
)

// ApprovalStatus mirrors the C ABI's fixed approval enum.
type ApprovalStatus int

const (
	ApprovalPending ApprovalStatus = iota
	ApprovalApproved
	ApprovalRejected
	ApprovalTimeout
)

// EventType mirrors the C ABI's fixed event-type enum.
type EventType int

const (
	EventNewMessage EventType = iota
	EventSessionStart
	EventSessionEnd
	EventHookEvent
)

func (e EventType) String() string {
	switch e {
	case EventNewMessage:
		return "NewMessage"
	case EventSessionStart:
		return "SessionStart"
	case EventSessionEnd:
		return "SessionEnd"
	case EventHookEvent:
		return "HookEvent"
	default:
		return "Unknown"
	}
}

// HookEventPayload carries a transient UI signal forwarded from a CLI's
// hook script. Context is opaque and forwarded unparsed — the Agent never
// interprets it, it only passes it through to subscribers.
type HookEventPayload struct {
	EventType        string          `json:"event_type"`
	SessionID        string          `json:"session_id,omitempty"`
	TranscriptPath   string          `json:"transcript_path,omitempty"`
	Cwd              string          `json:"cwd,omitempty"`
	Prompt           string          `json:"prompt,omitempty"`
	ToolName         string          `json:"tool_name,omitempty"`
	ToolInput        json.RawMessage `json:"tool_input,omitempty"`
	ToolUseID        string          `json:"tool_use_id,omitempty"`
	NotificationType string          `json:"notification_type,omitempty"`
	Message          string          `json:"message,omitempty"`
	Context          json.RawMessage `json:"context,omitempty"`
}

// Request is a client-to-agent message. Only the fields relevant to Type
// are populated; the rest are zero.
type Request struct {
	Type RequestType `json:"type"`
	ID   string      `json:"id,omitempty"`

	// NotifyFileChange
	Path string `json:"path,omitempty"`

	// WriteApproveResult
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Status     *ApprovalStatus `json:"status,omitempty"`
	ResolvedAt *int64          `json:"resolved_at,omitempty"`

	// Subscribe
	Events []EventType `json:"events,omitempty"`

	// HookEvent
	Hook *HookEventPayload `json:"hook,omitempty"`
}

// ErrKind enumerates the Response error kinds, matching the FfiError names
// the C ABI boundary maps errors onto.
type ErrKind string

const (
	ErrDatabaseError    ErrKind = "DatabaseError"
	ErrConnectionFailed ErrKind = "ConnectionFailed"
	ErrNotConnected     ErrKind = "NotConnected"
	ErrRequestFailed    ErrKind = "RequestFailed"
	ErrPermissionDenied ErrKind = "PermissionDenied"
	ErrUnknown          ErrKind = "Unknown"
)

// Response is an agent-to-client reply, correlated to a Request by ID.
type Response struct {
	ID         string          `json:"id,omitempty"`
	OK         bool            `json:"ok"`
	Data       json.RawMessage `json:"data,omitempty"`
	ErrKind    ErrKind         `json:"err_kind,omitempty"`
	ErrMessage string          `json:"err_message,omitempty"`
}

// OkResponse builds a successful Response carrying data (marshaled to
// json.RawMessage). A nil data value produces an empty Ok response.
func OkResponse(id string, data any) (Response, error) {
	resp := Response{ID: id, OK: true}
	if data == nil {
		return resp, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Response{}, err
	}
	resp.Data = raw
	return resp, nil
}

// ErrResponse builds a failed Response.
func ErrResponse(id string, kind ErrKind, message string) Response {
	return Response{ID: id, OK: false, ErrKind: kind, ErrMessage: message}
}

// Push is an unsolicited agent-to-client event.
type Push struct {
	EventType EventType       `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// NewMessageData is the payload carried by an EventNewMessage push: one
// event per ingestion batch, not per message.
type NewMessageData struct {
	SessionID     string `json:"session_id"`
	InsertedCount int    `json:"inserted_count"`
}

// SessionLifecycleData is the payload carried by EventSessionStart/EventSessionEnd.
type SessionLifecycleData struct {
	SessionID string `json:"session_id"`
}

// NewPush marshals data into a Push envelope for eventType.
func NewPush(eventType EventType, data any) (Push, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Push{}, err
	}
	return Push{EventType: eventType, Data: raw}, nil
}
