package storage

import (
	"strings"
	"unicode"
)

// sanitizeFTSQuery tokenizes a raw user query into FTS5-safe double-quoted
// phrase terms. Each whitespace-separated word is stripped of everything
// except letters, digits, and underscore so the result can never contain an
// FTS5 operator or an unterminated quote, whatever the caller typed.
func sanitizeFTSQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		var b strings.Builder
		for _, r := range f {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			terms = append(terms, `"`+b.String()+`"`)
		}
	}
	return strings.Join(terms, " ")
}

// SearchFTS tokenizes query defensively, runs it against messages_fts, and
// returns highlighted results. projectID, startTS, and endTS are optional
// filters (zero value means unset). An empty sanitized query returns an
// empty result set rather than an error.
func (s *Store) SearchFTS(query string, limit int, projectID *int64, order SearchOrder, startTS, endTS *int64) ([]SearchResult, error) {
	safe := sanitizeFTSQuery(query)
	if safe == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT m.id, s.session_id, p.path,
		       snippet(messages_fts, 0, '>>>', '<<<', '...', 10) AS snip,
		       bm25(messages_fts) AS score,
		       m.timestamp
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		JOIN sessions s ON s.id = m.session_id
		JOIN projects p ON p.id = s.project_id
		WHERE messages_fts MATCH ?`)
	args := []any{safe}

	if projectID != nil {
		sb.WriteString(" AND p.id = ?")
		args = append(args, *projectID)
	}
	if startTS != nil {
		sb.WriteString(" AND m.timestamp >= ?")
		args = append(args, *startTS)
	}
	if endTS != nil {
		sb.WriteString(" AND m.timestamp <= ?")
		args = append(args, *endTS)
	}

	switch order {
	case OrderTimeDesc:
		sb.WriteString(" ORDER BY m.timestamp DESC")
	case OrderTimeAsc:
		sb.WriteString(" ORDER BY m.timestamp ASC")
	default:
		sb.WriteString(" ORDER BY score ASC")
	}
	sb.WriteString(" LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, wrapErr("search_fts", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.MessageID, &r.SessionID, &r.ProjectPath, &r.Snippet, &r.Score, &r.Timestamp); err != nil {
			return nil, wrapErr("search_fts", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("search_fts", err)
	}
	return out, nil
}
