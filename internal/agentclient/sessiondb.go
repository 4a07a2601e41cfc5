package agentclient

import (
	"fmt"

	"github.com/vimo-ai/ai-cli-session-db/internal/config"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

// SessionDB is the SessionDbHandle: direct storage access for processes
// that legitimately need local, non-broker reads — the Agent itself, or a
// tool doing read-only queries when no Agent is running. It mirrors the
// Storage contract rather than reimplementing it.
type SessionDB struct {
	store *storage.Store
}

// OpenSessionDB opens the database at path (or the default
// ~/.vimo/sessions.db when path is empty).
func OpenSessionDB(path string) (*SessionDB, error) {
	if path == "" {
		p, err := config.DatabasePath()
		if err != nil {
			return nil, fmt.Errorf("agentclient: resolve default database path: %w", err)
		}
		path = p
	}
	store, err := storage.Connect(path)
	if err != nil {
		return nil, err
	}
	return &SessionDB{store: store}, nil
}

func (s *SessionDB) Close() error { return s.store.Close() }

func (s *SessionDB) ListProjects() ([]storage.Project, error) { return s.store.ListProjects() }

func (s *SessionDB) ListSessions(projectID int64) ([]storage.Session, error) {
	return s.store.ListSessions(projectID)
}

func (s *SessionDB) ListMessages(sessionID string, limit, offset int) ([]storage.Message, error) {
	return s.store.ListMessages(sessionID, limit, offset)
}

func (s *SessionDB) SearchFTS(query string, limit int, projectID *int64, order storage.SearchOrder, startTS, endTS *int64) ([]storage.SearchResult, error) {
	return s.store.SearchFTS(query, limit, projectID, order, startTS, endTS)
}

func (s *SessionDB) GetStats() (storage.Stats, error) { return s.store.GetStats() }
