package selector

import (
	"context"

	"github.com/opsconductor/toolengine/internal/database"
)

// Candidate is a tool name proposed by the semantic-candidate source for a
// given intent, before dedup and capping. Candidates are transient and
// never persisted.
type Candidate struct {
	ToolName    string  `json:"tool_name"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// CandidateSource is any component that knows how to retrieve ranked tool
// candidates for a free-text planner intent.
type CandidateSource interface {
	// Candidates returns up to limit candidates matching query, ranked
	// most relevant first.
	Candidates(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// FTSSource retrieves candidates from the catalog's SQLite FTS5 index.
type FTSSource struct {
	db *database.DB
}

// NewFTSSource creates a CandidateSource backed by the tool_specs_fts table.
func NewFTSSource(db *database.DB) *FTSSource {
	return &FTSSource{db: db}
}

// Candidates runs a ranked full-text search over latest tool specs.
func (s *FTSSource) Candidates(ctx context.Context, query string, limit int) ([]Candidate, error) {
	matches, err := database.SearchTools(ctx, s.db, query, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, Candidate{
			ToolName:    m.Name,
			Description: m.Description,
			Score:       m.Score,
		})
	}
	return candidates, nil
}
