package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Issue, error) {
	query, args := buildPgQuery(q)
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	issues := []Issue{}
	for rows.Next() {
		var issue Issue
		if err := rows.Scan(&issue.ID, &issue.Repo, &issue.Number, &issue.Title, &issue.Body, &issue.URL, &issue.State, &issue.Author, &issue.CreatedAt, &issue.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgfts scan: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// buildPgQuery returns the SQL and arguments for q. A blank text matches
// every issue; relevance then degrades to newest first.
func buildPgQuery(q Query) (string, []any) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	rank := "0"
	if text := strings.TrimSpace(q.Text); text != "" {
		tsQuery := "plainto_tsquery('english', " + arg(text) + ")"
		where = append(where, "fts @@ "+tsQuery)
		rank = "ts_rank(fts, " + tsQuery + ")"
	}
	if len(q.Filters.Repos) > 0 {
		where = append(where, "repo = ANY("+arg(q.Filters.Repos)+"::text[])")
	}
	if q.Filters.Status == StatusOpen || q.Filters.Status == StatusClosed {
		where = append(where, "state = "+arg(string(q.Filters.Status)))
	}

	order := rank + " DESC, created_at DESC"
	if q.Filters.Sort == SortDateCreated {
		order = "created_at DESC"
	}

	stmt := `SELECT id, repo, number, title, body, url, state, author, created_at, updated_at FROM issues`
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += fmt.Sprintf(" ORDER BY %s LIMIT %d", order, defaultLimit(q.Limit))
	return stmt, args
}
