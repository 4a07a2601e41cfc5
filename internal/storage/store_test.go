package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vimo-ai/ai-cli-session-db/internal/pathparser"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	st, err := Connect(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func msg(uuid string, role pathparser.Role, text string, ts int64) MessageInput {
	return MessageInput{UUID: uuid, Role: role, ContentText: text, ContentFull: text, Timestamp: ts}
}

func TestConnectCreatesSchemaVersion(t *testing.T) {
	st := newTestStore(t)
	var version int
	require.NoError(t, st.db.QueryRow(`SELECT schema_version FROM meta`).Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestUpsertProjectReturnsStableID(t *testing.T) {
	st := newTestStore(t)
	id1, err := st.UpsertProject("proj", "/Users/evan/proj", "claude")
	require.NoError(t, err)
	id2, err := st.UpsertProject("proj", "/Users/evan/proj", "claude")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	projects, err := st.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
}

func TestInsertMessagesDedupByUUID(t *testing.T) {
	st := newTestStore(t)
	pid, err := st.UpsertProject("proj", "/p", "claude")
	require.NoError(t, err)
	require.NoError(t, st.UpsertSession("s1", pid))

	n, err := st.InsertMessages("s1", []MessageInput{
		msg("u1", pathparser.RoleHuman, "hello", 100),
		msg("u2", pathparser.RoleAssistant, "world", 200),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = st.InsertMessages("s1", []MessageInput{
		msg("u1", pathparser.RoleHuman, "hello", 100),
		msg("u2", pathparser.RoleAssistant, "world", 200),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "duplicate uuids must not be inserted twice")

	msgs, err := st.ListMessages("s1", 100, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestInsertMessagesSequenceContinuesFromExisting(t *testing.T) {
	st := newTestStore(t)
	pid, err := st.UpsertProject("proj", "/p", "claude")
	require.NoError(t, err)
	require.NoError(t, st.UpsertSession("s1", pid))

	n, err := st.InsertMessages("s1", []MessageInput{
		msg("u1", pathparser.RoleHuman, "a", 1000),
		msg("u2", pathparser.RoleAssistant, "b", 2000),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = st.InsertMessages("s1", []MessageInput{
		msg("u3", pathparser.RoleHuman, "c", 3000),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	msgs, err := st.ListMessages("s1", 100, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.EqualValues(t, i, m.Sequence)
	}
}

func TestScanSessionIncrementalSequenceIsContiguous(t *testing.T) {
	st := newTestStore(t)
	pid, err := st.UpsertProject("proj", "/p", "claude")
	require.NoError(t, err)

	n, err := st.ScanSessionIncremental("s1", pid, []MessageInput{
		msg("u1", pathparser.RoleHuman, "a", 1000),
		msg("u2", pathparser.RoleAssistant, "b", 2000),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = st.ScanSessionIncremental("s1", pid, []MessageInput{
		msg("u3", pathparser.RoleHuman, "c", 3000),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	msgs, err := st.ListMessages("s1", 100, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.EqualValues(t, i, m.Sequence)
	}
}

func TestScanSessionIncrementalSequenceContiguousOnFullResend(t *testing.T) {
	st := newTestStore(t)
	pid, err := st.UpsertProject("proj", "/p", "claude")
	require.NoError(t, err)

	n, err := st.ScanSessionIncremental("s1", pid, []MessageInput{
		msg("u1", pathparser.RoleHuman, "a", 1000),
		msg("u2", pathparser.RoleAssistant, "b", 2000),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A live Collector re-scan re-parses the whole file: it resends every
	// already-ingested message alongside anything new, relying on
	// ON CONFLICT DO NOTHING to dedup u1/u2 away.
	n, err = st.ScanSessionIncremental("s1", pid, []MessageInput{
		msg("u1", pathparser.RoleHuman, "a", 1000),
		msg("u2", pathparser.RoleAssistant, "b", 2000),
		msg("u4", pathparser.RoleAssistant, "d", 4000),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	msgs, err := st.ListMessages("s1", 100, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.EqualValues(t, i, m.Sequence, "sequence must stay contiguous even when the dedup'd prefix is resent")
	}
	assert.Equal(t, "u4", msgs[2].UUID)
}

func TestAggregatesConsistentAfterBatch(t *testing.T) {
	st := newTestStore(t)
	pid, err := st.UpsertProject("proj", "/p", "claude")
	require.NoError(t, err)

	_, err = st.ScanSessionIncremental("s1", pid, []MessageInput{
		msg("u1", pathparser.RoleHuman, "a", 1000),
		msg("u2", pathparser.RoleAssistant, "b", 5000),
	})
	require.NoError(t, err)

	sessions, err := st.ListSessions(pid)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.EqualValues(t, 2, sessions[0].MessageCount)
	require.NotNil(t, sessions[0].LastMessageAt)
	assert.EqualValues(t, 5000, *sessions[0].LastMessageAt)
}

func TestGetSessionMaxSequenceEmptySession(t *testing.T) {
	st := newTestStore(t)
	pid, err := st.UpsertProject("proj", "/p", "claude")
	require.NoError(t, err)
	require.NoError(t, st.UpsertSession("s1", pid))

	max, err := st.GetSessionMaxSequence("s1")
	require.NoError(t, err)
	assert.Nil(t, max)
}

func TestSearchFTSFindsInsertedMessage(t *testing.T) {
	st := newTestStore(t)
	pid, err := st.UpsertProject("proj", "/p", "claude")
	require.NoError(t, err)

	_, err = st.ScanSessionIncremental("s1", pid, []MessageInput{
		msg("u1", pathparser.RoleAssistant, "hello world", 1000),
	})
	require.NoError(t, err)

	results, err := st.SearchFTS("hello", 10, nil, OrderScore, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].SessionID)
	assert.Contains(t, results[0].Snippet, "hello")
}

func TestSearchFTSSanitizesPunctuation(t *testing.T) {
	st := newTestStore(t)
	pid, err := st.UpsertProject("proj", "/p", "claude")
	require.NoError(t, err)
	_, err = st.ScanSessionIncremental("s1", pid, []MessageInput{
		msg("u1", pathparser.RoleAssistant, "safe content", 1000),
	})
	require.NoError(t, err)

	dangerous := []string{`"unterminated`, `foo AND bar OR`, `*`, `(parens)`, `col:value`, ""}
	for _, q := range dangerous {
		_, err := st.SearchFTS(q, 10, nil, OrderScore, nil, nil)
		assert.NoError(t, err, "query %q must never raise a syntax error", q)
	}
}

func TestSanitizeFTSQueryStripsOperators(t *testing.T) {
	assert.Equal(t, `"hello" "world"`, sanitizeFTSQuery("hello world"))
	assert.Equal(t, `"foo"`, sanitizeFTSQuery(`foo"`))
	assert.Equal(t, "", sanitizeFTSQuery(`***`))
}

func TestUpdateApprovalStatusOverwrites(t *testing.T) {
	st := newTestStore(t)
	resolvedAt := int64(1700000000000)
	_, err := st.UpdateApprovalStatus("tc-1", ApprovalApproved, &resolvedAt)
	require.NoError(t, err)

	_, err = st.UpdateApprovalStatus("tc-1", ApprovalRejected, &resolvedAt)
	require.NoError(t, err)

	var status int
	require.NoError(t, st.db.QueryRow(`SELECT status FROM approvals WHERE tool_call_id = ?`, "tc-1").Scan(&status))
	assert.Equal(t, int(ApprovalRejected), status)
}

func TestGetStats(t *testing.T) {
	st := newTestStore(t)
	pid, err := st.UpsertProject("proj", "/p", "claude")
	require.NoError(t, err)
	_, err = st.ScanSessionIncremental("s1", pid, []MessageInput{
		msg("u1", pathparser.RoleHuman, "a", 1000),
	})
	require.NoError(t, err)

	stats, err := st.GetStats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Projects)
	assert.EqualValues(t, 1, stats.Sessions)
	assert.EqualValues(t, 1, stats.Messages)
}
