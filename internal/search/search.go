package search

import (
	"context"
	"time"
)

// Status filters issues by state.
type Status string

const (
	StatusAll    Status = "all"
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAll, StatusOpen, StatusClosed:
		return true
	default:
		return false
	}
}

// Sort orders search results.
type Sort string

const (
	SortRelevance   Sort = "relevance"
	SortDateCreated Sort = "date-created"
)

func (s Sort) Valid() bool {
	return s == SortRelevance || s == SortDateCreated
}

// Filters narrows an issue search. Empty Repos searches every repository.
type Filters struct {
	Repos  []string `json:"repos"`
	Status Status   `json:"status"`
	Sort   Sort     `json:"sort"`
}

// Issue is a single search hit.
type Issue struct {
	ID        string    `json:"id"`
	Repo      string    `json:"repo"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	URL       string    `json:"url"`
	State     string    `json:"state"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Query describes a search request.
type Query struct {
	Text    string
	Filters Filters
	Limit   int
}

// Searcher can execute a full-text issue search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Issue, error)
	Healthy() bool
}

// IssueRecord is the data we index for an issue.
type IssueRecord struct {
	ID            string `json:"id"`
	Repo          string `json:"repo"`
	Number        int    `json:"number"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	URL           string `json:"url"`
	State         string `json:"state"`
	Author        string `json:"author"`
	CreatedAt     string `json:"createdAt"`
	CreatedAtUnix int64  `json:"createdAtUnix"`
	UpdatedAt     string `json:"updatedAt"`
}

// RecordFromIssue converts an issue into its index representation.
func RecordFromIssue(issue Issue) IssueRecord {
	return IssueRecord{
		ID:            issue.ID,
		Repo:          issue.Repo,
		Number:        issue.Number,
		Title:         issue.Title,
		Body:          issue.Body,
		URL:           issue.URL,
		State:         issue.State,
		Author:        issue.Author,
		CreatedAt:     issue.CreatedAt.UTC().Format(time.RFC3339),
		CreatedAtUnix: issue.CreatedAt.Unix(),
		UpdatedAt:     issue.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}
