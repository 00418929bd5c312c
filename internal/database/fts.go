package database

import (
	"context"
	"strings"

	"github.com/opsconductor/toolengine/internal/types"
)

// ToolMatch is one full-text search hit against the tool catalog.
type ToolMatch struct {
	Name        string
	Description string
	Score       float64
}

// SearchTools performs a full-text search over latest tool specs and
// returns matches ranked by bm25 relevance. The query is sanitized into
// FTS5 prefix terms so free-text planner intents cannot break the MATCH
// expression syntax.
func SearchTools(ctx context.Context, db *DB, searchQuery string, limit int) ([]ToolMatch, error) {
	match := buildMatchExpression(searchQuery)
	if match == "" {
		return nil, nil
	}

	query := `
		SELECT t.name, t.description, bm25(tool_specs_fts) AS score
		FROM tool_specs_fts
		JOIN tool_specs t ON t.rowid = tool_specs_fts.rowid
		WHERE tool_specs_fts MATCH ? AND t.is_latest = 1
		ORDER BY score
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, match, limit)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "tool full-text search failed", err)
	}
	defer rows.Close()

	var matches []ToolMatch
	for rows.Next() {
		var m ToolMatch
		if err := rows.Scan(&m.Name, &m.Description, &m.Score); err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan search result", err)
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to iterate search results", err)
	}

	return matches, nil
}

// buildMatchExpression converts free text into an FTS5 OR query of quoted
// prefix terms. Punctuation is stripped so user input cannot inject MATCH
// operators.
func buildMatchExpression(searchQuery string) string {
	fields := strings.FieldsFunc(searchQuery, func(r rune) bool {
		return !(r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, `"`+f+`"*`)
	}

	return strings.Join(terms, " OR ")
}
