package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef void (*push_callback_fn)(int32_t event_type, const char* data_json, void* user_data);

static inline void invoke_push_callback(push_callback_fn fn, int32_t event_type, const char* data_json, void* user_data) {
    fn(event_type, data_json, user_data);
}
*/
import "C"

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/cgo"
	"sync"
	"time"
	"unsafe"

	"github.com/vimo-ai/ai-cli-session-db/internal/agentclient"
	"github.com/vimo-ai/ai-cli-session-db/internal/protocol"
)

// agentClientState bundles the Client with the push-callback registration,
// since set_push_callback and destroy both need to mutate it under one lock
// separate from the Client's own internal mutex.
type agentClientState struct {
	mu       sync.Mutex
	client   *agentclient.Client
	callback C.push_callback_fn
	userData unsafe.Pointer
}

//export agent_client_create
func agent_client_create(component *C.char, data_dir *C.char, agent_source_dir *C.char, out_handle *C.uintptr_t) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	if out_handle == nil {
		return C.int32_t(ErrNullPointer)
	}
	comp := ""
	if component != nil {
		s, errc := goString(component)
		if errc != C.int32_t(ErrSuccess) {
			return errc
		}
		comp = s
	}
	dataDir := ""
	if data_dir != nil {
		s, errc := goString(data_dir)
		if errc != C.int32_t(ErrSuccess) {
			return errc
		}
		dataDir = s
	}
	agentSourceDir := ""
	if agent_source_dir != nil {
		s, errc := goString(agent_source_dir)
		if errc != C.int32_t(ErrSuccess) {
			return errc
		}
		agentSourceDir = s
	}

	client, err := agentclient.New(comp, dataDir, agentSourceDir)
	if err != nil {
		return C.int32_t(ErrRuntimeError)
	}

	state := &agentClientState{client: client}
	client.SetPushCallback(func(eventType protocol.EventType, data json.RawMessage) {
		dispatchPushCallback(state, eventType, data)
	})

	h := cgo.NewHandle(state)
	*out_handle = C.uintptr_t(h)
	return C.int32_t(ErrSuccess)
}

func loadAgentClientState(handle C.uintptr_t) (*agentClientState, bool) {
	h := cgo.Handle(handle)
	state, ok := h.Value().(*agentClientState)
	return state, ok
}

func dispatchPushCallback(state *agentClientState, eventType protocol.EventType, data json.RawMessage) {
	state.mu.Lock()
	fn := state.callback
	userData := state.userData
	state.mu.Unlock()
	if fn == nil {
		return
	}
	cData := C.CString(string(data))
	defer C.free(unsafe.Pointer(cData))
	C.invoke_push_callback(fn, C.int32_t(eventType), cData, userData)
}

//export agent_client_connect
func agent_client_connect(handle C.uintptr_t, timeout_ms C.int32_t) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	state, ok := loadAgentClientState(handle)
	if !ok {
		return C.int32_t(ErrNullPointer)
	}

	timeout := 2 * time.Second
	if timeout_ms > 0 {
		timeout = time.Duration(timeout_ms) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := state.client.Connect(ctx); err != nil {
		if errors.Is(err, agentclient.ErrAgentNotFound) {
			return C.int32_t(ErrAgentNotFound)
		}
		return C.int32_t(ErrConnectionFailed)
	}
	return C.int32_t(ErrSuccess)
}

//export agent_client_set_push_callback
func agent_client_set_push_callback(handle C.uintptr_t, fn C.push_callback_fn, user_data unsafe.Pointer) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	state, ok := loadAgentClientState(handle)
	if !ok {
		return C.int32_t(ErrNullPointer)
	}
	state.mu.Lock()
	state.callback = fn
	state.userData = user_data
	state.mu.Unlock()
	return C.int32_t(ErrSuccess)
}

//export agent_client_subscribe
func agent_client_subscribe(handle C.uintptr_t, events *C.int32_t, count C.int32_t) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	state, ok := loadAgentClientState(handle)
	if !ok {
		return C.int32_t(ErrNullPointer)
	}
	if count > 0 && events == nil {
		return C.int32_t(ErrNullPointer)
	}

	n := int(count)
	slice := unsafe.Slice(events, n)
	eventTypes := make([]protocol.EventType, n)
	for i, v := range slice {
		eventTypes[i] = protocol.EventType(v)
	}

	if err := state.client.Subscribe(eventTypes); err != nil {
		return responseErrToFFI(err)
	}
	return C.int32_t(ErrSuccess)
}

//export agent_client_notify_file_change
func agent_client_notify_file_change(handle C.uintptr_t, path *C.char) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	state, ok := loadAgentClientState(handle)
	if !ok {
		return C.int32_t(ErrNullPointer)
	}
	p, errc := goString(path)
	if errc != C.int32_t(ErrSuccess) {
		return errc
	}
	if err := state.client.NotifyFileChange(p); err != nil {
		return responseErrToFFI(err)
	}
	return C.int32_t(ErrSuccess)
}

// agent_client_write_approve_result records an approval decision.
// resolved_at == -1 encodes "no resolution timestamp" per the spec's
// null-as-negative-one convention.
//
//export agent_client_write_approve_result
func agent_client_write_approve_result(handle C.uintptr_t, tool_call_id *C.char, status C.int32_t, resolved_at C.int64_t) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	state, ok := loadAgentClientState(handle)
	if !ok {
		return C.int32_t(ErrNullPointer)
	}
	toolCallID, errc := goString(tool_call_id)
	if errc != C.int32_t(ErrSuccess) {
		return errc
	}

	var resolvedAt *int64
	if resolved_at >= 0 {
		v := int64(resolved_at)
		resolvedAt = &v
	}

	if err := state.client.WriteApproveResult(toolCallID, protocol.ApprovalStatus(status), resolvedAt); err != nil {
		return responseErrToFFI(err)
	}
	return C.int32_t(ErrSuccess)
}

//export agent_client_is_connected
func agent_client_is_connected(handle C.uintptr_t, out_connected *C.int32_t) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	state, ok := loadAgentClientState(handle)
	if !ok || out_connected == nil {
		return C.int32_t(ErrNullPointer)
	}
	if state.client.IsConnected() {
		*out_connected = 1
	} else {
		*out_connected = 0
	}
	return C.int32_t(ErrSuccess)
}

//export agent_client_disconnect
func agent_client_disconnect(handle C.uintptr_t) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	state, ok := loadAgentClientState(handle)
	if !ok {
		return C.int32_t(ErrNullPointer)
	}
	if err := state.client.Disconnect(); err != nil {
		return C.int32_t(ErrRuntimeError)
	}
	return C.int32_t(ErrSuccess)
}

//export agent_client_destroy
func agent_client_destroy(handle C.uintptr_t) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	h := cgo.Handle(handle)
	state, ok := h.Value().(*agentClientState)
	if !ok {
		return C.int32_t(ErrNullPointer)
	}
	_ = state.client.Disconnect()
	h.Delete()
	return C.int32_t(ErrSuccess)
}

func responseErrToFFI(err error) C.int32_t {
	if errors.Is(err, agentclient.ErrNotConnected) {
		return C.int32_t(ErrNotConnected)
	}
	return C.int32_t(ErrRequestFailed)
}
