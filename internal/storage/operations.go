package storage

import (
	"database/sql"
	"time"

	"github.com/vimo-ai/ai-cli-session-db/internal/pathparser"
)

func nowMillis() int64 { return time.Now().UnixMilli() }

// UpsertProject inserts a new project or returns the id of the existing one
// for (path, source), bumping updated_at on the existing row either way.
func (s *Store) UpsertProject(name, path, source string) (int64, error) {
	var id int64
	err := s.write(func(tx *sql.Tx) error {
		now := nowMillis()
		if _, err := tx.Exec(`
			INSERT INTO projects(name, path, source, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(path, source) DO UPDATE SET updated_at = excluded.updated_at`,
			name, path, source, now, now); err != nil {
			return wrapErr("upsert_project", err)
		}
		return wrapErr("upsert_project", tx.QueryRow(`SELECT id FROM projects WHERE path = ? AND source = ?`, path, source).Scan(&id))
	})
	return id, err
}

// ListProjects returns every project row.
func (s *Store) ListProjects() ([]Project, error) {
	rows, err := s.db.Query(`SELECT id, name, path, source, created_at, updated_at FROM projects ORDER BY id`)
	if err != nil {
		return nil, wrapErr("list_projects", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Path, &p.Source, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, wrapErr("list_projects", err)
		}
		out = append(out, p)
	}
	return out, wrapErr("list_projects", rows.Err())
}

// UpsertSession creates a session row with zero counts, or no-ops if one
// already exists for sessionID.
func (s *Store) UpsertSession(sessionID string, projectID int64) error {
	return s.write(func(tx *sql.Tx) error {
		now := nowMillis()
		_, err := tx.Exec(`
			INSERT INTO sessions(session_id, project_id, message_count, last_message_at, created_at, updated_at)
			VALUES (?, ?, 0, NULL, ?, ?)
			ON CONFLICT(session_id) DO NOTHING`,
			sessionID, projectID, now, now)
		return wrapErr("upsert_session", err)
	})
}

// ListSessions returns sessions for a project ordered by last_message_at
// descending (sessions never messaged sort last).
func (s *Store) ListSessions(projectID int64) ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, project_id, message_count, last_message_at, created_at, updated_at
		FROM sessions WHERE project_id = ?
		ORDER BY last_message_at IS NULL, last_message_at DESC`, projectID)
	if err != nil {
		return nil, wrapErr("list_sessions", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var lastMsg sql.NullInt64
		if err := rows.Scan(&sess.ID, &sess.SessionID, &sess.ProjectID, &sess.MessageCount, &lastMsg, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, wrapErr("list_sessions", err)
		}
		if lastMsg.Valid {
			v := lastMsg.Int64
			sess.LastMessageAt = &v
		}
		out = append(out, sess)
	}
	return out, wrapErr("list_sessions", rows.Err())
}

// sessionRowID resolves the internal numeric id for an external session_id
// string. Must be called from within a write transaction that already
// guarantees the session exists.
func sessionRowID(tx *sql.Tx, sessionID string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM sessions WHERE session_id = ?`, sessionID).Scan(&id)
	return id, err
}

// InsertMessages inserts MessageInput rows for sessionID inside one
// transaction: duplicates by (session_id, uuid) are silently ignored, the
// session's message_count/last_message_at aggregates are recomputed from
// the messages table, and the return value is the number of rows actually
// inserted (not the number attempted).
func (s *Store) InsertMessages(sessionID string, inputs []MessageInput) (int, error) {
	var inserted int
	err := s.write(func(tx *sql.Tx) error {
		n, err := insertMessagesTx(tx, sessionID, inputs)
		inserted = n
		return err
	})
	return inserted, err
}

func insertMessagesTx(tx *sql.Tx, sessionID string, inputs []MessageInput) (int, error) {
	sid, err := sessionRowID(tx, sessionID)
	if err != nil {
		return 0, wrapErr("insert_messages", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages(session_id, uuid, role, content_text, content_full, timestamp, sequence, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, uuid) DO NOTHING`)
	if err != nil {
		return 0, wrapErr("insert_messages", err)
	}
	defer stmt.Close()

	var maxSeq sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(sequence) FROM messages WHERE session_id = ?`, sid).Scan(&maxSeq); err != nil {
		return 0, wrapErr("insert_messages", err)
	}
	seq := int64(0)
	if maxSeq.Valid {
		seq = maxSeq.Int64 + 1
	}

	inserted := 0
	for _, in := range inputs {
		var raw any
		if len(in.Raw) > 0 {
			raw = string(in.Raw)
		}
		res, err := stmt.Exec(sid, in.UUID, int(in.Role), in.ContentText, in.ContentFull, in.Timestamp, seq, raw)
		if err != nil {
			return 0, wrapErr("insert_messages", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
			seq++
		}
	}

	if inserted > 0 {
		if err := refreshSessionAggregates(tx, sid); err != nil {
			return 0, err
		}
	}
	return inserted, nil
}

func refreshSessionAggregates(tx *sql.Tx, sessionRowID int64) error {
	_, err := tx.Exec(`
		UPDATE sessions SET
			message_count = (SELECT COUNT(*) FROM messages WHERE session_id = ?),
			last_message_at = (SELECT MAX(timestamp) FROM messages WHERE session_id = ?),
			updated_at = ?
		WHERE id = ?`,
		sessionRowID, sessionRowID, nowMillis(), sessionRowID)
	return wrapErr("refresh_aggregates", err)
}

// GetSessionMaxSequence returns the highest sequence value in sessionID, or
// nil if the session has no messages.
func (s *Store) GetSessionMaxSequence(sessionID string) (*int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRow(`
		SELECT MAX(m.sequence) FROM messages m
		JOIN sessions s ON s.id = m.session_id
		WHERE s.session_id = ?`, sessionID).Scan(&max)
	if err != nil {
		return nil, wrapErr("get_session_max_sequence", err)
	}
	if !max.Valid {
		return nil, nil
	}
	v := max.Int64
	return &v, nil
}

// scanSafetyMarginMillis trims the incremental re-scan window so a
// checkpoint exactly at a message's timestamp does not re-exclude it.
const scanSafetyMarginMillis = 5000

// ScanSessionIncremental ensures the project/session rows exist, rewrites
// input sequences to continue from the session's current high-water mark,
// drops inputs older than the checkpoint minus a safety margin, inserts the
// remainder, and advances the checkpoint to the latest timestamp inserted.
func (s *Store) ScanSessionIncremental(sessionID string, projectID int64, inputs []MessageInput) (int, error) {
	var inserted int
	err := s.write(func(tx *sql.Tx) error {
		now := nowMillis()
		if _, err := tx.Exec(`
			INSERT INTO sessions(session_id, project_id, message_count, last_message_at, created_at, updated_at)
			VALUES (?, ?, 0, NULL, ?, ?)
			ON CONFLICT(session_id) DO NOTHING`, sessionID, projectID, now, now); err != nil {
			return wrapErr("scan_session_incremental", err)
		}

		sid, err := sessionRowID(tx, sessionID)
		if err != nil {
			return wrapErr("scan_session_incremental", err)
		}

		var maxSeq sql.NullInt64
		if err := tx.QueryRow(`SELECT MAX(sequence) FROM messages WHERE session_id = ?`, sid).Scan(&maxSeq); err != nil {
			return wrapErr("scan_session_incremental", err)
		}
		nextSeq := int64(0)
		if maxSeq.Valid {
			nextSeq = maxSeq.Int64 + 1
		}

		var checkpoint sql.NullInt64
		if err := tx.QueryRow(`SELECT last_timestamp FROM scan_checkpoints WHERE session_id = ?`, sessionID).Scan(&checkpoint); err != nil && err != sql.ErrNoRows {
			return wrapErr("scan_session_incremental", err)
		}

		cutoff := int64(0)
		if checkpoint.Valid {
			cutoff = checkpoint.Int64 - scanSafetyMarginMillis
		}

		filtered := make([]MessageInput, 0, len(inputs))
		for _, in := range inputs {
			if checkpoint.Valid && in.Timestamp <= cutoff {
				continue
			}
			filtered = append(filtered, in)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO messages(session_id, uuid, role, content_text, content_full, timestamp, sequence, raw)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id, uuid) DO NOTHING`)
		if err != nil {
			return wrapErr("scan_session_incremental", err)
		}
		defer stmt.Close()

		seq := nextSeq
		var maxInsertedTS int64
		for _, in := range filtered {
			var raw any
			if len(in.Raw) > 0 {
				raw = string(in.Raw)
			}
			res, err := stmt.Exec(sid, in.UUID, int(in.Role), in.ContentText, in.ContentFull, in.Timestamp, seq, raw)
			if err != nil {
				return wrapErr("scan_session_incremental", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
				seq++
				if in.Timestamp > maxInsertedTS {
					maxInsertedTS = in.Timestamp
				}
			}
		}

		if inserted > 0 {
			if err := refreshSessionAggregates(tx, sid); err != nil {
				return err
			}
			newCheckpoint := maxInsertedTS
			if checkpoint.Valid && checkpoint.Int64 > newCheckpoint {
				newCheckpoint = checkpoint.Int64
			}
			if _, err := tx.Exec(`
				INSERT INTO scan_checkpoints(session_id, last_timestamp) VALUES (?, ?)
				ON CONFLICT(session_id) DO UPDATE SET last_timestamp = excluded.last_timestamp
				WHERE excluded.last_timestamp > scan_checkpoints.last_timestamp`,
				sessionID, newCheckpoint); err != nil {
				return wrapErr("scan_session_incremental", err)
			}
		}
		return nil
	})
	return inserted, err
}

// ListMessages returns up to limit messages for sessionID ordered by
// sequence ascending, starting at offset.
func (s *Store) ListMessages(sessionID string, limit, offset int) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT m.id, m.session_id, m.uuid, m.role, m.content_text, m.content_full, m.timestamp, m.sequence, m.raw
		FROM messages m
		JOIN sessions s ON s.id = m.session_id
		WHERE s.session_id = ?
		ORDER BY m.sequence ASC
		LIMIT ? OFFSET ?`, sessionID, limit, offset)
	if err != nil {
		return nil, wrapErr("list_messages", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var role int
		var raw sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UUID, &role, &m.ContentText, &m.ContentFull, &m.Timestamp, &m.Sequence, &raw); err != nil {
			return nil, wrapErr("list_messages", err)
		}
		m.Role = pathparser.Role(role)
		if raw.Valid {
			m.Raw = []byte(raw.String)
		}
		out = append(out, m)
	}
	return out, wrapErr("list_messages", rows.Err())
}

// UpdateApprovalStatus upserts the approval row for toolCallID, returning
// the number of rows affected (1 for insert-or-update, since the primary
// key is always touched).
func (s *Store) UpdateApprovalStatus(toolCallID string, status ApprovalStatus, resolvedAt *int64) (int64, error) {
	var rowsUpdated int64
	err := s.write(func(tx *sql.Tx) error {
		var resolved any
		if resolvedAt != nil {
			resolved = *resolvedAt
		}
		res, err := tx.Exec(`
			INSERT INTO approvals(tool_call_id, status, resolved_at) VALUES (?, ?, ?)
			ON CONFLICT(tool_call_id) DO UPDATE SET status = excluded.status, resolved_at = excluded.resolved_at`,
			toolCallID, int(status), resolved)
		if err != nil {
			return wrapErr("update_approval_status", err)
		}
		rowsUpdated, _ = res.RowsAffected()
		return nil
	})
	return rowsUpdated, err
}

// GetStats returns row counts across the three core tables.
func (s *Store) GetStats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM projects`).Scan(&st.Projects); err != nil {
		return Stats{}, wrapErr("get_stats", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&st.Sessions); err != nil {
		return Stats{}, wrapErr("get_stats", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&st.Messages); err != nil {
		return Stats{}, wrapErr("get_stats", err)
	}
	return st, nil
}

// DeleteProject removes a project and cascades to its sessions/messages via
// foreign keys. Not exposed to clients; used by maintenance tooling.
func (s *Store) DeleteProject(projectID int64) error {
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, projectID)
		return wrapErr("delete_project", err)
	})
}

// VacuumCheckpoint forces a WAL checkpoint, truncating the WAL file. Useful
// before copy-on-read snapshots or on clean shutdown.
func (s *Store) VacuumCheckpoint() error {
	_, err := s.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`)
	return wrapErr("vacuum_checkpoint", err)
}
