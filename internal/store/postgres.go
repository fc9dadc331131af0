package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListRepositories returns every known repository name in sorted order.
func (s *PostgresStore) ListRepositories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM repositories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	repos := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, name)
	}
	return repos, rows.Err()
}

func (s *PostgresStore) UpsertRepositories(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repositories (name)
		SELECT UNNEST($1::text[])
		ON CONFLICT (name) DO NOTHING
	`, names)
	if err != nil {
		return fmt.Errorf("upsert repositories: %w", err)
	}
	return nil
}

// UpsertIssues writes issues and their repositories in one transaction.
func (s *PostgresStore) UpsertIssues(ctx context.Context, issues []Issue) error {
	if len(issues) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert issues: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seen := map[string]bool{}
	for _, issue := range issues {
		if !seen[issue.Repo] {
			seen[issue.Repo] = true
			if _, err := tx.ExecContext(ctx, `INSERT INTO repositories (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, issue.Repo); err != nil {
				return fmt.Errorf("upsert repository %s: %w", issue.Repo, err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO issues (id, repo, number, title, body, url, state, author, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				body = EXCLUDED.body,
				url = EXCLUDED.url,
				state = EXCLUDED.state,
				author = EXCLUDED.author,
				updated_at = EXCLUDED.updated_at
		`, issue.ID, issue.Repo, issue.Number, issue.Title, issue.Body, issue.URL, issue.State, issue.Author, issue.CreatedAt, issue.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert issue %s: %w", issue.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert issues: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetIssue(ctx context.Context, id string) (Issue, error) {
	var issue Issue
	err := s.db.QueryRowContext(ctx, `
		SELECT id, repo, number, title, body, url, state, author, created_at, updated_at
		FROM issues WHERE id = $1
	`, id).Scan(&issue.ID, &issue.Repo, &issue.Number, &issue.Title, &issue.Body, &issue.URL, &issue.State, &issue.Author, &issue.CreatedAt, &issue.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Issue{}, ErrNotFound
	}
	if err != nil {
		return Issue{}, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

// ListIssues returns every issue, newest first. Used to rebuild the search index.
func (s *PostgresStore) ListIssues(ctx context.Context) ([]Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo, number, title, body, url, state, author, created_at, updated_at
		FROM issues
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	issues := []Issue{}
	for rows.Next() {
		var issue Issue
		if err := rows.Scan(&issue.ID, &issue.Repo, &issue.Number, &issue.Title, &issue.Body, &issue.URL, &issue.State, &issue.Author, &issue.CreatedAt, &issue.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}
