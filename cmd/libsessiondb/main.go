// Command libsessiondb builds the C-ABI shared library consumers in other
// languages link against. It exports SessionDbHandle (direct storage
// access) and AgentClientHandle (the broker-connected normal path) as
// opaque handles, using runtime/cgo.Handle so Go's garbage collector never
// sees raw pointers cross the boundary. Every exported function recovers
// from panics and maps them onto FfiError, and releases (free_string,
// sessiondb_close, agent_client_destroy) are explicit: nothing here is
// reclaimed by the caller's language runtime.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"unicode/utf8"
	"unsafe"
)

// FfiError mirrors the header's fixed error encoding. Values must never
// change once published; append only.
type FfiError int32

const (
	ErrSuccess           FfiError = 0
	ErrNullPointer       FfiError = 1
	ErrInvalidUtf8       FfiError = 2
	ErrDatabaseError     FfiError = 3
	ErrCoordinationError FfiError = 4
	ErrPermissionDenied  FfiError = 5
	ErrConnectionFailed  FfiError = 6
	ErrNotConnected      FfiError = 7
	ErrRequestFailed     FfiError = 8
	ErrAgentNotFound     FfiError = 9
	ErrRuntimeError      FfiError = 10
	ErrUnknown           FfiError = 99
)

// recoverToErrorC turns a panic inside an exported function into
// ErrUnknown instead of letting it unwind across the cgo boundary, which
// would abort the host process. Call as `defer recoverToErrorC(&errOut)`
// from every //export function with a named C.int32_t return value.
func recoverToErrorC(out *C.int32_t) {
	if r := recover(); r != nil {
		*out = C.int32_t(ErrUnknown)
	}
}

// goString converts a C string to Go, returning the specific FFI error code
// a caller should propagate: ErrNullPointer for a nil pointer, ErrInvalidUtf8
// for malformed content, ErrSuccess otherwise.
func goString(s *C.char) (string, C.int32_t) {
	if s == nil {
		return "", C.int32_t(ErrNullPointer)
	}
	v := C.GoString(s)
	if !utf8.ValidString(v) {
		return "", C.int32_t(ErrInvalidUtf8)
	}
	return v, C.int32_t(ErrSuccess)
}

func cString(s string) *C.char {
	return C.CString(s)
}

//export free_string
func free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func main() {} // required by -buildmode=c-shared, never invoked
