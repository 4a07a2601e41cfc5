package agent

import (
	"github.com/vimo-ai/ai-cli-session-db/internal/protocol"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

// storageApprovalStatus converts the wire-level approval enum to Storage's,
// which share the same fixed integer encoding documented in the C ABI.
func storageApprovalStatus(s protocol.ApprovalStatus) storage.ApprovalStatus {
	return storage.ApprovalStatus(s)
}
