package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"encoding/json"
	"runtime/cgo"

	"github.com/vimo-ai/ai-cli-session-db/internal/agentclient"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

// sessiondb_open opens a SessionDbHandle at path (NULL selects the default
// ~/.vimo/sessions.db). On success *out_handle receives an opaque handle id
// that must be released with sessiondb_close.
//
//export sessiondb_open
func sessiondb_open(path *C.char, out_handle *C.uintptr_t) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	if out_handle == nil {
		return C.int32_t(ErrNullPointer)
	}
	p := ""
	if path != nil {
		s, errc := goString(path)
		if errc != C.int32_t(ErrSuccess) {
			return errc
		}
		p = s
	}
	sdb, err := agentclient.OpenSessionDB(p)
	if err != nil {
		return C.int32_t(ErrDatabaseError)
	}
	h := cgo.NewHandle(sdb)
	*out_handle = C.uintptr_t(h)
	return C.int32_t(ErrSuccess)
}

//export sessiondb_close
func sessiondb_close(handle C.uintptr_t) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	h := cgo.Handle(handle)
	sdb, ok := h.Value().(*agentclient.SessionDB)
	if !ok {
		return C.int32_t(ErrNullPointer)
	}
	h.Delete()
	if err := sdb.Close(); err != nil {
		return C.int32_t(ErrDatabaseError)
	}
	return C.int32_t(ErrSuccess)
}

func loadSessionDB(handle C.uintptr_t) (*agentclient.SessionDB, bool) {
	h := cgo.Handle(handle)
	sdb, ok := h.Value().(*agentclient.SessionDB)
	return sdb, ok
}

// sessiondb_list_projects writes a JSON array of projects into *out_json,
// owned by the caller until released with free_string.
//
//export sessiondb_list_projects
func sessiondb_list_projects(handle C.uintptr_t, out_json **C.char) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	sdb, ok := loadSessionDB(handle)
	if !ok || out_json == nil {
		return C.int32_t(ErrNullPointer)
	}
	projects, err := sdb.ListProjects()
	if err != nil {
		return C.int32_t(ErrDatabaseError)
	}
	return marshalOut(projects, out_json)
}

//export sessiondb_list_sessions
func sessiondb_list_sessions(handle C.uintptr_t, project_id C.int64_t, out_json **C.char) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	sdb, ok := loadSessionDB(handle)
	if !ok || out_json == nil {
		return C.int32_t(ErrNullPointer)
	}
	sessions, err := sdb.ListSessions(int64(project_id))
	if err != nil {
		return C.int32_t(ErrDatabaseError)
	}
	return marshalOut(sessions, out_json)
}

//export sessiondb_list_messages
func sessiondb_list_messages(handle C.uintptr_t, session_id *C.char, limit C.int32_t, offset C.int32_t, out_json **C.char) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	sdb, ok := loadSessionDB(handle)
	if !ok || out_json == nil {
		return C.int32_t(ErrNullPointer)
	}
	sid, errc := goString(session_id)
	if errc != C.int32_t(ErrSuccess) {
		return errc
	}
	messages, err := sdb.ListMessages(sid, int(limit), int(offset))
	if err != nil {
		return C.int32_t(ErrDatabaseError)
	}
	return marshalOut(messages, out_json)
}

// sessiondb_search_fts runs a full-text search. project_id < 0 means "all
// projects"; start_ts/end_ts == -1 mean "unbounded", matching the spec's
// null-timestamp-as-negative-one convention.
//
//export sessiondb_search_fts
func sessiondb_search_fts(handle C.uintptr_t, query *C.char, limit C.int32_t, project_id C.int64_t, order C.int32_t, start_ts C.int64_t, end_ts C.int64_t, out_json **C.char) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	sdb, ok := loadSessionDB(handle)
	if !ok || out_json == nil {
		return C.int32_t(ErrNullPointer)
	}
	q, errc := goString(query)
	if errc != C.int32_t(ErrSuccess) {
		return errc
	}

	var projectPtr *int64
	if project_id >= 0 {
		v := int64(project_id)
		projectPtr = &v
	}
	var startPtr, endPtr *int64
	if start_ts >= 0 {
		v := int64(start_ts)
		startPtr = &v
	}
	if end_ts >= 0 {
		v := int64(end_ts)
		endPtr = &v
	}

	results, err := sdb.SearchFTS(q, int(limit), projectPtr, storage.SearchOrder(order), startPtr, endPtr)
	if err != nil {
		return C.int32_t(ErrDatabaseError)
	}
	return marshalOut(results, out_json)
}

//export sessiondb_get_stats
func sessiondb_get_stats(handle C.uintptr_t, out_json **C.char) (errOut C.int32_t) {
	defer recoverToErrorC(&errOut)
	sdb, ok := loadSessionDB(handle)
	if !ok || out_json == nil {
		return C.int32_t(ErrNullPointer)
	}
	stats, err := sdb.GetStats()
	if err != nil {
		return C.int32_t(ErrDatabaseError)
	}
	return marshalOut(stats, out_json)
}

// marshalOut JSON-encodes v into a freshly allocated C string stored at
// *out, which the caller must release with free_string.
func marshalOut(v any, out **C.char) C.int32_t {
	data, err := json.Marshal(v)
	if err != nil {
		return C.int32_t(ErrRuntimeError)
	}
	*out = cString(string(data))
	return C.int32_t(ErrSuccess)
}
