package pathparser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTripSimplePath(t *testing.T) {
	root := t.TempDir()
	projectDir := filepath.Join(root, "Users", "evan", "proj")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))

	encoded := Encode(projectDir)
	decoded := Decode(encoded)
	assert.Equal(t, projectDir, decoded)
}

func TestDecodeFastPathWithoutFilesystem(t *testing.T) {
	assert.Equal(t, "/Users/evan/proj", decodeFastPath("-Users-evan-proj"))
	assert.Equal(t, "", decodeFastPath(""))
}

func TestDecodeSlowPathResolvesLiteralHyphen(t *testing.T) {
	root := t.TempDir()
	projectDir := filepath.Join(root, "Users", "evan", "my-project")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))

	encoded := Encode(projectDir)
	decoded := Decode(encoded)
	assert.Equal(t, projectDir, decoded)
}

func TestDecodeFallsBackToNaiveWhenNothingOnDisk(t *testing.T) {
	decoded := Decode("-nonexistent-path-at-all")
	assert.Equal(t, "/nonexistent/path/at/all", decoded)
}

func TestDecodeEmptyString(t *testing.T) {
	assert.Equal(t, "", Decode(""))
}

func TestComputeSessionPath(t *testing.T) {
	got := ComputeSessionPath("/root/data", "-Users-evan-proj", "session-123")
	assert.Equal(t, "/root/data/-Users-evan-proj/session-123.jsonl", got)
}

func TestIsAgentSession(t *testing.T) {
	assert.True(t, IsAgentSession("agent-abc123"))
	assert.False(t, IsAgentSession("abc123"))
	assert.False(t, IsAgentSession(""))
}
