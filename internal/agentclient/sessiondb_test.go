package agentclient

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vimo-ai/ai-cli-session-db/internal/pathparser"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

func TestOpenSessionDBAndDelegation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	sdb, err := OpenSessionDB(path)
	require.NoError(t, err)
	defer sdb.Close()

	projectID, err := sdb.store.UpsertProject("proj", "/tmp/proj", "claude")
	require.NoError(t, err)
	require.NoError(t, sdb.store.UpsertSession("sess-1", projectID))
	_, err = sdb.store.InsertMessages("sess-1", []storage.MessageInput{
		{UUID: "u1", Role: pathparser.RoleHuman, ContentText: "hello world", ContentFull: "hello world", Timestamp: 1000},
	})
	require.NoError(t, err)

	projects, err := sdb.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 1)

	sessions, err := sdb.ListSessions(projectID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.EqualValues(t, 1, sessions[0].MessageCount)

	messages, err := sdb.ListMessages("sess-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello world", messages[0].ContentText)

	results, err := sdb.SearchFTS("hello", 10, nil, storage.OrderScore, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	stats, err := sdb.GetStats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Projects)
	assert.EqualValues(t, 1, stats.Sessions)
	assert.EqualValues(t, 1, stats.Messages)
}

func TestOpenSessionDBDefaultsPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VIMO_DATA_DIR", dir)

	sdb, err := OpenSessionDB("")
	require.NoError(t, err)
	defer sdb.Close()

	assert.Equal(t, filepath.Join(dir, "sessions.db"), sdb.store.Path())
}
