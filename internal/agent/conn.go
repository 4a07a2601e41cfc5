package agent

import (
	"context"
	"net"

	"github.com/vimo-ai/ai-cli-session-db/internal/collector"
	"github.com/vimo-ai/ai-cli-session-db/internal/protocol"
)

// handleConn runs one connection's independent read loop and outbound push
// pump until the client disconnects or the connection is force-closed for
// backpressure.
func (a *Agent) handleConn(ctx context.Context, conn net.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()

	sub, unregister := a.subs.Register(func() { cancel(); conn.Close() })
	defer unregister()

	go a.pumpPushes(connCtx, conn, sub)

	dec := protocol.NewDecoder(conn)
	enc := protocol.NewEncoder(conn)

	for {
		var req protocol.Request
		ok, err := dec.Decode(&req)
		if err != nil {
			// Malformed frame: drop the connection per the protocol's error
			// handling design, rather than try to resynchronize.
			return
		}
		if !ok {
			return
		}

		resp := a.dispatch(sub, req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (a *Agent) pumpPushes(ctx context.Context, conn net.Conn, sub *subscriber) {
	enc := protocol.NewEncoder(conn)
	for {
		select {
		case push, ok := <-sub.ch:
			if !ok {
				return
			}
			if err := enc.Encode(push); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// dispatch handles one request and returns its response. It never blocks on
// collection longer than the underlying Storage call takes: collection
// happens synchronously in the calling connection's goroutine, but Storage
// itself serializes the actual database mutation through its single writer.
func (a *Agent) dispatch(sub *subscriber, req protocol.Request) protocol.Response {
	switch req.Type {
	case protocol.ReqPing:
		resp, _ := protocol.OkResponse(req.ID, nil)
		return resp

	case protocol.ReqSubscribe:
		a.subs.SetInterest(sub, req.Events)
		resp, _ := protocol.OkResponse(req.ID, nil)
		return resp

	case protocol.ReqNotifyFileChange:
		return a.handleNotifyFileChange(req)

	case protocol.ReqWriteApproveResult:
		return a.handleWriteApproveResult(req)

	case protocol.ReqHookEvent:
		return a.handleHookEvent(req)

	default:
		return protocol.ErrResponse(req.ID, protocol.ErrRequestFailed, "unknown request type")
	}
}

func (a *Agent) handleNotifyFileChange(req protocol.Request) protocol.Response {
	result := collector.CollectByPath(a.store, req.Path)
	if result.ErrorCount > 0 {
		return protocol.ErrResponse(req.ID, protocol.ErrDatabaseError, result.FirstError)
	}
	if result.MessagesInserted > 0 {
		a.notifyNewMessages(req.Path, result.MessagesInserted)
	}
	resp, _ := protocol.OkResponse(req.ID, map[string]int{"inserted": result.MessagesInserted})
	return resp
}

func (a *Agent) handleWriteApproveResult(req protocol.Request) protocol.Response {
	if req.Status == nil {
		return protocol.ErrResponse(req.ID, protocol.ErrRequestFailed, "missing status")
	}
	status := storageApprovalStatus(*req.Status)
	if _, err := a.store.UpdateApprovalStatus(req.ToolCallID, status, req.ResolvedAt); err != nil {
		return protocol.ErrResponse(req.ID, protocol.ErrDatabaseError, err.Error())
	}
	resp, _ := protocol.OkResponse(req.ID, nil)
	return resp
}

// handleHookEvent enqueues a collection task when a transcript path is
// present (running even if no subscribers are listening), and always
// broadcasts the event itself.
func (a *Agent) handleHookEvent(req protocol.Request) protocol.Response {
	if req.Hook == nil {
		return protocol.ErrResponse(req.ID, protocol.ErrRequestFailed, "missing hook payload")
	}

	if req.Hook.TranscriptPath != "" {
		result := collector.CollectByPath(a.store, req.Hook.TranscriptPath)
		if result.MessagesInserted > 0 {
			a.notifyNewMessages(req.Hook.TranscriptPath, result.MessagesInserted)
		}
	}

	push, err := protocol.NewPush(protocol.EventHookEvent, req.Hook)
	if err == nil {
		a.subs.Broadcast(push)
	}

	resp, _ := protocol.OkResponse(req.ID, nil)
	return resp
}
